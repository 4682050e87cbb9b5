package wnet

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by every call on platforms without WNet.
var ErrUnsupported = errors.New("network drive mapping is only supported on windows")

// Errno is a Win32 error code returned by a WNet call.
type Errno uint32

// Win32 error codes documented for the WNet functions used here.
const (
	ErrorSuccess                   Errno = 0
	ErrorAccessDenied              Errno = 5
	ErrorNotSupported              Errno = 50
	ErrorRemNotList                Errno = 51
	ErrorBadNetPath                Errno = 53
	ErrorUnexpNetErr               Errno = 59
	ErrorNetNameDeleted            Errno = 64
	ErrorBadDevType                Errno = 66
	ErrorBadNetName                Errno = 67
	ErrorAlreadyAssigned           Errno = 85
	ErrorInvalidPassword           Errno = 86
	ErrorInvalidParameter          Errno = 87
	ErrorSemTimeout                Errno = 121
	ErrorBusy                      Errno = 170
	ErrorMoreData                  Errno = 234
	ErrorBadDevice                 Errno = 1200
	ErrorConnectionUnavail         Errno = 1201
	ErrorDeviceAlreadyRemembered   Errno = 1202
	ErrorNoNetOrBadPath            Errno = 1203
	ErrorBadProvider               Errno = 1204
	ErrorCannotOpenProfile         Errno = 1205
	ErrorBadProfile                Errno = 1206
	ErrorExtendedError             Errno = 1208
	ErrorSessionCredentialConflict Errno = 1219
	ErrorNoNetwork                 Errno = 1222
	ErrorCancelled                 Errno = 1223
	ErrorNetworkUnreachable        Errno = 1231
	ErrorHostUnreachable           Errno = 1232
	ErrorLogonFailure              Errno = 1326
	ErrorBadUsername               Errno = 2202
	ErrorNotConnected              Errno = 2250
	ErrorOpenFiles                 Errno = 2401
	ErrorDeviceInUse               Errno = 2404
)

var errnoNames = map[Errno]string{
	ErrorSuccess:                   "ERROR_SUCCESS",
	ErrorAccessDenied:              "ERROR_ACCESS_DENIED",
	ErrorNotSupported:              "ERROR_NOT_SUPPORTED",
	ErrorRemNotList:                "ERROR_REM_NOT_LIST",
	ErrorBadNetPath:                "ERROR_BAD_NETPATH",
	ErrorUnexpNetErr:               "ERROR_UNEXP_NET_ERR",
	ErrorNetNameDeleted:            "ERROR_NETNAME_DELETED",
	ErrorBadDevType:                "ERROR_BAD_DEV_TYPE",
	ErrorBadNetName:                "ERROR_BAD_NET_NAME",
	ErrorAlreadyAssigned:           "ERROR_ALREADY_ASSIGNED",
	ErrorInvalidPassword:           "ERROR_INVALID_PASSWORD",
	ErrorInvalidParameter:          "ERROR_INVALID_PARAMETER",
	ErrorSemTimeout:                "ERROR_SEM_TIMEOUT",
	ErrorBusy:                      "ERROR_BUSY",
	ErrorMoreData:                  "ERROR_MORE_DATA",
	ErrorBadDevice:                 "ERROR_BAD_DEVICE",
	ErrorConnectionUnavail:         "ERROR_CONNECTION_UNAVAIL",
	ErrorDeviceAlreadyRemembered:   "ERROR_DEVICE_ALREADY_REMEMBERED",
	ErrorNoNetOrBadPath:            "ERROR_NO_NET_OR_BAD_PATH",
	ErrorBadProvider:               "ERROR_BAD_PROVIDER",
	ErrorCannotOpenProfile:         "ERROR_CANNOT_OPEN_PROFILE",
	ErrorBadProfile:                "ERROR_BAD_PROFILE",
	ErrorExtendedError:             "ERROR_EXTENDED_ERROR",
	ErrorSessionCredentialConflict: "ERROR_SESSION_CREDENTIAL_CONFLICT",
	ErrorNoNetwork:                 "ERROR_NO_NETWORK",
	ErrorCancelled:                 "ERROR_CANCELLED",
	ErrorNetworkUnreachable:        "ERROR_NETWORK_UNREACHABLE",
	ErrorHostUnreachable:           "ERROR_HOST_UNREACHABLE",
	ErrorLogonFailure:              "ERROR_LOGON_FAILURE",
	ErrorBadUsername:               "NERR_BadUsername",
	ErrorNotConnected:              "ERROR_NOT_CONNECTED",
	ErrorOpenFiles:                 "ERROR_OPEN_FILES",
	ErrorDeviceInUse:               "ERROR_DEVICE_IN_USE",
}

func (e Errno) String() string {
	if name, ok := errnoNames[e]; ok {
		return fmt.Sprintf("%s (%d)", name, uint32(e))
	}
	return fmt.Sprintf("error %d", uint32(e))
}

// Error is a failed WNet call.
type Error struct {
	// Op is the native function name, e.g. "WNetAddConnection2"
	Op string

	// Name is the drive or share the call was made for
	Name string

	Code Errno

	// Err is the platform error (windows.Errno on Windows)
	Err error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Err != nil {
		msg = fmt.Sprintf("%v [%s]", e.Err, e.Code)
	}
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Name, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Class tells the retry loop whether waiting can fix a failure.
type Class int

const (
	// ClassRetryable failures may clear once the network or server comes up
	ClassRetryable Class = iota

	// ClassFatal failures will fail the same way on every attempt
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassFatal:
		return "fatal"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// fatalCodes are causes that no amount of waiting at boot will fix.
// Anything not listed is treated as retryable.
var fatalCodes = map[Errno]bool{
	ErrorAccessDenied:              true,
	ErrorNotSupported:              true,
	ErrorBadDevType:                true,
	ErrorInvalidPassword:           true,
	ErrorInvalidParameter:          true,
	ErrorBadDevice:                 true,
	ErrorBadProvider:               true,
	ErrorCannotOpenProfile:         true,
	ErrorBadProfile:                true,
	ErrorSessionCredentialConflict: true,
	ErrorCancelled:                 true,
	ErrorLogonFailure:              true,
	ErrorBadUsername:               true,
}

// Classify returns the failure class of err. Errors that did not come from a
// WNet call are retryable, except ErrUnsupported.
func Classify(err error) Class {
	if err == nil {
		return ClassRetryable
	}
	if errors.Is(err, ErrUnsupported) {
		return ClassFatal
	}
	var werr *Error
	if errors.As(err, &werr) && fatalCodes[werr.Code] {
		return ClassFatal
	}
	return ClassRetryable
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return err != nil && Classify(err) == ClassRetryable
}

// CodeOf extracts the Win32 code from err, or ErrorSuccess if there is none.
func CodeOf(err error) Errno {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Code
	}
	return ErrorSuccess
}

// IsAuthFailure reports whether the server rejected the account or password.
func IsAuthFailure(err error) bool {
	switch CodeOf(err) {
	case ErrorAccessDenied, ErrorInvalidPassword, ErrorLogonFailure, ErrorBadUsername:
		return true
	default:
		return false
	}
}
