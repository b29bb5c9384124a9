package tools

import (
	"encoding/json"
	"testing"
)

func TestArgs_String(t *testing.T) {
	args := Args{"title": "Buy milk", "count": 3}

	s, err := args.String("title")
	if err != nil {
		t.Fatalf("String failed: %v", err)
	}
	if s != "Buy milk" {
		t.Errorf("got %q", s)
	}

	if _, err := args.String("missing"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := args.String("count"); err == nil {
		t.Error("expected error for wrong type")
	}
}

func TestArgs_StringOr(t *testing.T) {
	args := Args{"format": "json", "count": 3}

	if got := args.StringOr("format", "markdown"); got != "json" {
		t.Errorf("got %q", got)
	}
	if got := args.StringOr("missing", "markdown"); got != "markdown" {
		t.Errorf("default not applied, got %q", got)
	}
	if got := args.StringOr("count", "markdown"); got != "markdown" {
		t.Errorf("wrong type should fall back, got %q", got)
	}
}

func TestArgs_Int64(t *testing.T) {
	// JSON decoding produces float64; also accept int, int64, json.Number.
	cases := []struct {
		name  string
		value interface{}
		want  int64
	}{
		{"float64", float64(42), 42},
		{"int", int(7), 7},
		{"int64", int64(9), 9},
		{"json.Number", json.Number("15"), 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Args{"task_id": tc.value}.Int64("task_id")
			if err != nil {
				t.Fatalf("Int64 failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}

	if _, err := (Args{}).Int64("task_id"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := (Args{"task_id": "3"}).Int64("task_id"); err == nil {
		t.Error("expected error for string value")
	}
}

func TestArgs_IntOr(t *testing.T) {
	if got := (Args{"limit": float64(5)}).IntOr("limit", 10); got != 5 {
		t.Errorf("got %d", got)
	}
	if got := (Args{}).IntOr("limit", 10); got != 10 {
		t.Errorf("default not applied, got %d", got)
	}
}

func TestArgs_Has(t *testing.T) {
	args := Args{"title": "x", "description": nil}
	if !args.Has("title") {
		t.Error("Has(title) = false")
	}
	if !args.Has("description") {
		t.Error("Has should report explicit nulls as present")
	}
	if args.Has("priority") {
		t.Error("Has(priority) = true for absent key")
	}
}
