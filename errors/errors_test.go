package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestInvalidConfig(t *testing.T) {
	err := InvalidConfig("cpu_budget", int64(-1), "must be non-negative")
	if err.Code != ErrCodeInvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %s", err.Code)
	}
	if !strings.Contains(err.Error(), "cpu_budget must be non-negative but is -1") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Details["field"] != "cpu_budget" {
		t.Errorf("expected field detail, got %v", err.Details["field"])
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Internal("flush failed", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "(cause: boom)") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("setup: %w", InvalidConfig("ram_budget", -5, "must be non-negative"))

	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError through wrapping")
	}
	if appErr.Code != ErrCodeInvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %s", appErr.Code)
	}
	if !HasCode(wrapped, ErrCodeInvalidConfig) {
		t.Error("expected HasCode to match")
	}
	if HasCode(stderrors.New("plain"), ErrCodeInvalidConfig) {
		t.Error("plain error must not match")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeInternal, "x").WithDetail("node", "Map(3)")
	if err.Details["node"] != "Map(3)" {
		t.Errorf("expected detail, got %v", err.Details)
	}
	err.WithCause(stderrors.New("inner"))
	if err.Unwrap() == nil {
		t.Error("expected cause to be set")
	}
}

func TestExporter(t *testing.T) {
	err := Exporter("otlp-metric", stderrors.New("dial"))
	if err.Code != ErrCodeExporter {
		t.Errorf("expected EXPORTER_ERROR, got %s", err.Code)
	}
	if err.Details["exporter"] != "otlp-metric" {
		t.Errorf("unexpected details %v", err.Details)
	}
}
