package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew_DefaultCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category ErrorCategory
	}{
		{ErrCodeNotFound, CategoryPermanent},
		{ErrCodeInvalidInput, CategoryPermanent},
		{ErrCodePersistence, CategoryTransient},
		{ErrCodeCorruption, CategoryInternal},
		{ErrCodePanic, CategoryInternal},
	}

	for _, tt := range tests {
		e := New(tt.code, "test")
		if e.Category() != tt.category {
			t.Errorf("%s: expected category %s, got %s", tt.code, tt.category, e.Category())
		}
	}
}

func TestRetryable(t *testing.T) {
	if !New(ErrCodePersistence, "flush failed").Retryable() {
		t.Error("persistence errors should be retryable by default")
	}
	if New(ErrCodeNotFound, "missing").Retryable() {
		t.Error("not found errors should not be retryable")
	}
	if !New(ErrCodeNotFound, "missing", WithRetryable(true)).Retryable() {
		t.Error("WithRetryable(true) should override the default")
	}
}

func TestNotFound_Message(t *testing.T) {
	e := NotFound(42)
	if e.Code() != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", e.Code())
	}
	if e.TaskID() != 42 {
		t.Errorf("expected task ID 42, got %d", e.TaskID())
	}
	// The message must point the caller at list_tasks.
	want := "task 42 not found (use list_tasks to see valid task IDs)"
	if e.Error() != want {
		t.Errorf("expected %q, got %q", want, e.Error())
	}
}

func TestWrap_PreservesCode(t *testing.T) {
	inner := InvalidInput("priority must be one of low, medium, high")
	wrapped := Wrap(inner, "creating task")

	if wrapped.Code() != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", wrapped.Code())
	}
	if !stderrors.Is(wrapped, inner) {
		t.Error("wrapped error should match inner via errors.Is")
	}
}

func TestWrap_UnknownError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("disk on fire"), "flushing store")
	if wrapped.Code() != ErrCodeInternal {
		t.Errorf("expected INTERNAL for unknown cause, got %s", wrapped.Code())
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestIsHelpers(t *testing.T) {
	nf := NotFound(7)
	if !IsNotFound(nf) {
		t.Error("IsNotFound should match")
	}
	if IsInvalidInput(nf) {
		t.Error("IsInvalidInput should not match a not-found error")
	}
	if !IsPersistence(Persistence("write failed")) {
		t.Error("IsPersistence should match")
	}
	if IsNotFound(fmt.Errorf("plain error")) {
		t.Error("plain errors should not match any code")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := New(ErrCodePersistence, "flush failed",
		WithTaskID(3),
		WithMetadata("path", "/tmp/tasks.json"),
		WithCause(fmt.Errorf("no space left")))

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Error
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Code() != ErrCodePersistence {
		t.Errorf("expected PERSISTENCE, got %s", decoded.Code())
	}
	if decoded.TaskID() != 3 {
		t.Errorf("expected task ID 3, got %d", decoded.TaskID())
	}
	if decoded.Metadata()["path"] != "/tmp/tasks.json" {
		t.Errorf("metadata lost in round trip: %v", decoded.Metadata())
	}
	if !decoded.Retryable() {
		t.Error("retryable flag lost in round trip")
	}
}

func TestRecoverPanic(t *testing.T) {
	if RecoverPanic(nil) != nil {
		t.Error("RecoverPanic(nil) should return nil")
	}
	e := RecoverPanic("boom")
	if e.Code() != ErrCodePanic {
		t.Errorf("expected PANIC, got %s", e.Code())
	}
	if e.Error() != "boom" {
		t.Errorf("expected boom, got %s", e.Error())
	}
}

func TestCause(t *testing.T) {
	root := fmt.Errorf("root")
	wrapped := Wrap(Wrap(root, "inner"), "outer")
	if Cause(wrapped) != root {
		t.Errorf("expected root cause, got %v", Cause(wrapped))
	}
}
