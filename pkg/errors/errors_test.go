package errors

import (
	stdErrors "errors"
	"net/http"
	"strings"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestFromErrorBulk(t *testing.T) {
	bulk := &BulkError{
		Op:        "bulk create notifications",
		Succeeded: 2,
		Failures:  []BulkFailure{{Index: 1, Reason: "user not found"}},
	}

	out := FromError(bulk)
	if out.Code != "PARTIAL_BATCH_FAILURE" {
		t.Fatalf("unexpected code: %s", out.Code)
	}
	if out.StatusCode != http.StatusMultiStatus {
		t.Fatalf("unexpected status: %d", out.StatusCode)
	}
	if !strings.Contains(out.Message, "row 1: user not found") {
		t.Fatalf("expected failure detail in message, got %s", out.Message)
	}
}

func TestBulkErrorMessage(t *testing.T) {
	bulk := &BulkError{
		Op:        "bulk create",
		Succeeded: 1,
		Failures: []BulkFailure{
			{Index: 0, Reason: "disaster not found"},
			{Index: 2, Reason: "duplicate"},
		},
	}

	msg := bulk.Error()
	if !strings.Contains(msg, "2 of 3 rows failed") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !bulk.HasFailures() {
		t.Fatal("expected HasFailures to be true")
	}

	var empty *BulkError
	if empty.HasFailures() {
		t.Fatal("nil BulkError must report no failures")
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("notification already exists")
	if err.Code != ErrConflict.Code {
		t.Fatalf("expected %s, got %s", ErrConflict.Code, err.Code)
	}
	if err.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
