package utils

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/klog/v2"
)

// Sentinel errors for common conditions.
// Use errors.Is() to check for these rather than string matching.
var (
	// ErrInvalidDrive indicates a drive designator that is not a single letter
	ErrInvalidDrive = errors.New("invalid drive letter")

	// ErrInvalidShare indicates a share path that is not in \\host\share form
	ErrInvalidShare = errors.New("invalid share path")

	// ErrInvalidTimeout indicates a timeout that is not a non-negative integer
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrArgumentCount indicates the wrong number of positional arguments
	ErrArgumentCount = errors.New("wrong number of arguments")

	// ErrNotMapped indicates the drive has no active network connection
	ErrNotMapped = errors.New("drive is not mapped")
)

// ErrorType classifies errors for reporting purposes
type ErrorType int

const (
	// ErrorTypeInternal indicates an OS or programming failure
	ErrorTypeInternal ErrorType = iota

	// ErrorTypeValidation indicates bad user input (usage error)
	ErrorTypeValidation
)

// ClassifiedError wraps an error with its type and logging context
type ClassifiedError struct {
	originalErr error
	msg         string
	errorType   ErrorType

	// Additional context for logging only
	internalContext map[string]string
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	return e.msg
}

// Unwrap returns the original error for error unwrapping
func (e *ClassifiedError) Unwrap() error {
	return e.originalErr
}

// WithContext adds internal context to the error (for logging only)
func (e *ClassifiedError) WithContext(key, value string) *ClassifiedError {
	if e.internalContext == nil {
		e.internalContext = make(map[string]string)
	}
	e.internalContext[key] = value
	return e
}

// Log logs the full error details at the appropriate level
func (e *ClassifiedError) Log() {
	msg := e.msg
	if len(e.internalContext) > 0 {
		msg = fmt.Sprintf("%s context=%v", msg, e.internalContext)
	}

	switch e.errorType {
	case ErrorTypeInternal:
		klog.Errorf("[INTERNAL ERROR] %s", msg)
	case ErrorTypeValidation:
		klog.V(4).Infof("[VALIDATION ERROR] %s", msg)
	}
}

// NewValidationError creates a usage error for a bad field. sentinel is
// wrapped so callers can match it with errors.Is.
func NewValidationError(sentinel error, field, reason string) *ClassifiedError {
	e := &ClassifiedError{
		originalErr: fmt.Errorf("%w: %s", sentinel, reason),
		msg:         fmt.Sprintf("validation failed for %s: %s", field, reason),
		errorType:   ErrorTypeValidation,
	}
	return e.WithContext("field", field).WithContext("reason", reason)
}

// NewInternalError wraps an OS or programming failure
func NewInternalError(err error, msg string) *ClassifiedError {
	if err == nil {
		err = fmt.Errorf("internal error")
	}
	return &ClassifiedError{
		originalErr: err,
		msg:         fmt.Sprintf("%s: %v", msg, err),
		errorType:   ErrorTypeInternal,
	}
}

// IsValidationError checks if an error (or anything it wraps) is a validation error
func IsValidationError(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.errorType == ErrorTypeValidation
	}
	return false
}

// IsInternalError checks if an error (or anything it wraps) is an internal error
func IsInternalError(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.errorType == ErrorTypeInternal
	}
	return false
}

// RedactedSecret replaces secrets in log output
const RedactedSecret = "[REDACTED]"

// RedactSecret removes every occurrence of the given secrets from msg.
// Empty secrets are ignored.
func RedactSecret(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, s, RedactedSecret)
	}
	return msg
}

// LogErrorDetails logs the full error details for debugging
func LogErrorDetails(err error) {
	if err == nil {
		return
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		ce.Log()
	} else {
		klog.Errorf("Error: %v", err)
	}
}
