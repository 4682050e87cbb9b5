package mock

import (
	"sync"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/mapdrive/pkg/wnet"
)

// ErrorMode defines the type of error to inject
type ErrorMode int

const (
	// ErrorModeNone indicates no error injection
	ErrorModeNone ErrorMode = iota
	// ErrorModeNetworkDown simulates a server that is not reachable yet
	ErrorModeNetworkDown
	// ErrorModeAccessDenied simulates a share the account may not use
	ErrorModeAccessDenied
	// ErrorModeLogonFailure simulates a wrong username or password
	ErrorModeLogonFailure
)

// ErrorInjector fails connects once triggerAfter connects have gone through
type ErrorInjector struct {
	mode         ErrorMode
	operationNum int
	triggerAfter int
	mu           sync.Mutex // Protect operation counter
}

// NewErrorInjector creates an injector that lets triggerAfter connects
// through before failing every later one
func NewErrorInjector(mode ErrorMode, triggerAfter int) *ErrorInjector {
	return &ErrorInjector{
		mode:         mode,
		triggerAfter: triggerAfter,
	}
}

// ParseErrorMode converts string error mode to ErrorMode constant
func ParseErrorMode(s string) ErrorMode {
	switch s {
	case "network_down":
		return ErrorModeNetworkDown
	case "access_denied":
		return ErrorModeAccessDenied
	case "logon_failure":
		return ErrorModeLogonFailure
	case "none", "":
		return ErrorModeNone
	default:
		klog.Warningf("Unknown error mode %q, using none", s)
		return ErrorModeNone
	}
}

// ShouldFailConnect returns whether the next connect should fail and the
// Win32 code to fail it with
func (e *ErrorInjector) ShouldFailConnect() (bool, wnet.Errno) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode == ErrorModeNone {
		return false, wnet.ErrorSuccess
	}

	e.operationNum++
	if e.operationNum <= e.triggerAfter {
		return false, wnet.ErrorSuccess
	}

	switch e.mode {
	case ErrorModeNetworkDown:
		return true, wnet.ErrorBadNetPath
	case ErrorModeAccessDenied:
		return true, wnet.ErrorAccessDenied
	case ErrorModeLogonFailure:
		return true, wnet.ErrorLogonFailure
	default:
		return false, wnet.ErrorSuccess
	}
}

// Reset resets the operation counter for test isolation
func (e *ErrorInjector) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.operationNum = 0
}
