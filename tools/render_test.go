package tools

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/taskman/store"
)

func TestRenderMarkdown_Empty(t *testing.T) {
	if got := RenderMarkdown(nil); got != "No tasks found." {
		t.Errorf("got %q", got)
	}
}

func TestRenderMarkdown_IndentsDescription(t *testing.T) {
	tasks := []*store.Task{{
		ID:          4,
		Title:       "Write report",
		Description: "first line\nsecond line",
		Priority:    store.PriorityHigh,
		Status:      store.StatusPending,
		CreatedAt:   time.Now(),
	}}

	got := RenderMarkdown(tasks)
	if !strings.Contains(got, "○ [4] Write report (high)") {
		t.Errorf("task line missing:\n%s", got)
	}
	if !strings.Contains(got, "\n    first line\n    second line") {
		t.Errorf("description not indented:\n%s", got)
	}
}

func TestRenderJSON_Shape(t *testing.T) {
	done := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	tasks := []*store.Task{{
		ID:          1,
		Title:       "Done",
		Priority:    store.PriorityLow,
		Status:      store.StatusCompleted,
		CreatedAt:   done.Add(-time.Hour),
		CompletedAt: &done,
	}}

	text, err := RenderJSON(tasks)
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var decoded struct {
		TotalCount int `json:"total_count"`
		Tasks      []struct {
			ID          int64   `json:"id"`
			Status      string  `json:"status"`
			CompletedAt *string `json:"completed_at"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalCount != 1 || len(decoded.Tasks) != 1 {
		t.Fatalf("wrong counts: %+v", decoded)
	}
	if decoded.Tasks[0].Status != "completed" || decoded.Tasks[0].CompletedAt == nil {
		t.Errorf("completion fields missing: %+v", decoded.Tasks[0])
	}
}

func TestRenderJSON_NilTasks(t *testing.T) {
	text, err := RenderJSON(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"tasks": []`) {
		t.Errorf("nil tasks should render as empty array:\n%s", text)
	}
}
