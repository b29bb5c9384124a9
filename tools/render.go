package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vinayprograms/taskman/store"
)

// Status glyphs used in human-readable output.
const (
	glyphCompleted = "✓"
	glyphPending   = "○"
	glyphDeleted   = "✗"
)

// statusGlyph returns the glyph for a task's completion state.
func statusGlyph(s store.Status) string {
	if s == store.StatusCompleted {
		return glyphCompleted
	}
	return glyphPending
}

// taskLine formats a single task as one line of text.
func taskLine(t *store.Task) string {
	return fmt.Sprintf("%s [%d] %s (%s)", statusGlyph(t.Status), t.ID, t.Title, t.Priority)
}

// RenderMarkdown formats tasks as a human-readable listing.
func RenderMarkdown(tasks []*store.Task) string {
	if len(tasks) == 0 {
		return "No tasks found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tasks (%d total)\n", len(tasks))
	for _, t := range tasks {
		b.WriteString("\n")
		b.WriteString(taskLine(t))
		if t.Description != "" {
			for _, line := range strings.Split(t.Description, "\n") {
				b.WriteString("\n    ")
				b.WriteString(line)
			}
		}
	}
	return b.String()
}

// listPayload is the machine-readable listing format.
type listPayload struct {
	TotalCount int           `json:"total_count"`
	Tasks      []*store.Task `json:"tasks"`
}

// RenderJSON formats tasks as an indented JSON document.
func RenderJSON(tasks []*store.Task) (string, error) {
	if tasks == nil {
		tasks = []*store.Task{}
	}
	data, err := json.MarshalIndent(listPayload{TotalCount: len(tasks), Tasks: tasks}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding task list: %w", err)
	}
	return string(data), nil
}
