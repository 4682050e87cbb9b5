package utils

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError(ErrInvalidShare, "sharePath", `must start with \\`)

	if !IsValidationError(err) {
		t.Error("expected validation error")
	}
	if IsInternalError(err) {
		t.Error("validation error must not be internal")
	}
	if !errors.Is(err, ErrInvalidShare) {
		t.Error("expected error to wrap ErrInvalidShare")
	}
	if !strings.Contains(err.Error(), "sharePath") {
		t.Errorf("expected field name in message: %s", err.Error())
	}

	ctx := err.internalContext
	if ctx["field"] != "sharePath" {
		t.Errorf("expected field context, got %v", ctx)
	}
}

func TestValidationErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("parse args: %w", NewValidationError(ErrArgumentCount, "arguments", "too many"))

	if !IsValidationError(err) {
		t.Error("expected wrapped validation error to be detected")
	}
	if !errors.Is(err, ErrArgumentCount) {
		t.Error("expected wrapped error to match ErrArgumentCount")
	}
}

func TestNewInternalError(t *testing.T) {
	base := errors.New("GetLogicalDrives failed")
	err := NewInternalError(base, "list drives")

	if !IsInternalError(err) {
		t.Error("expected internal error")
	}
	if IsValidationError(err) {
		t.Error("internal error must not be a validation error")
	}
	if !errors.Is(err, base) {
		t.Error("expected internal error to wrap original")
	}
	if err.Error() != "list drives: GetLogicalDrives failed" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	if NewInternalError(nil, "x").Unwrap() == nil {
		t.Error("nil error should be replaced by a generic error")
	}
}

func TestPlainErrorsAreUnclassified(t *testing.T) {
	err := errors.New("boom")
	if IsValidationError(err) || IsInternalError(err) {
		t.Error("plain errors must not be classified")
	}
	if IsValidationError(nil) {
		t.Error("nil must not be a validation error")
	}
}

func TestRedactSecret(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		secrets []string
		want    string
	}{
		{
			name:    "password in message",
			msg:     "connect as svc with hunter2 failed",
			secrets: []string{"hunter2"},
			want:    "connect as svc with [REDACTED] failed",
		},
		{
			name:    "repeated",
			msg:     "hunter2 hunter2",
			secrets: []string{"hunter2"},
			want:    "[REDACTED] [REDACTED]",
		},
		{
			name:    "empty secret ignored",
			msg:     "nothing to hide",
			secrets: []string{""},
			want:    "nothing to hide",
		},
		{
			name: "no secrets",
			msg:  "plain",
			want: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactSecret(tt.msg, tt.secrets...); got != tt.want {
				t.Errorf("RedactSecret() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogErrorDetailsNil(t *testing.T) {
	// Must not panic
	LogErrorDetails(nil)
	LogErrorDetails(errors.New("plain"))
	LogErrorDetails(NewValidationError(ErrInvalidDrive, "driveLetter", "bad"))
}
