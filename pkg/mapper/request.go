package mapper

import (
	"fmt"
	"time"

	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
)

// Credentials are passed straight through to the OS and saved by it.
type Credentials struct {
	Username string
	Password string
}

// String never includes the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s:%s", c.Username, utils.RedactedSecret)
}

// GoString keeps %#v from printing the password.
func (c Credentials) GoString() string {
	return fmt.Sprintf("mapper.Credentials{Username:%q, Password:%q}", c.Username, utils.RedactedSecret)
}

// Request is one drive mapping to establish.
type Request struct {
	// Drive is the local drive letter ("S", "s:", "S:" ...)
	Drive string

	// Share is the UNC path (\\host\share)
	Share string

	// Timeout is the retry budget in seconds. 0 means a single attempt.
	Timeout int

	// Credentials are optional; nil connects as the current user
	Credentials *Credentials
}

// Validate returns a copy of r with the drive normalized to "X:".
func (r Request) Validate() (Request, error) {
	drive, err := utils.NormalizeDrive(r.Drive)
	if err != nil {
		return r, err
	}
	if err := utils.ValidateSharePath(r.Share); err != nil {
		return r, err
	}
	if r.Timeout < 0 {
		return r, utils.NewValidationError(utils.ErrInvalidTimeout, "timeoutSeconds", "must not be negative")
	}

	r.Drive = drive
	return r, nil
}

// hasCredentials is true only with a non-empty username; a password alone
// connects as the current user.
func (r Request) hasCredentials() bool {
	return r.Credentials != nil && r.Credentials.Username != ""
}

// Outcome is how a mapping run ended.
type Outcome int

const (
	// OutcomeAlreadyOnline means the drive was mapped and reachable; nothing was changed
	OutcomeAlreadyOnline Outcome = iota

	// OutcomeMapped means a connect attempt succeeded
	OutcomeMapped

	// OutcomeExhausted means every attempt in the budget failed
	OutcomeExhausted

	// OutcomeAborted means repeated fatal failures stopped the run early
	OutcomeAborted

	// OutcomeCanceled means the context was canceled mid-run
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyOnline:
		return "already_online"
	case OutcomeMapped:
		return "mapped"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeAborted:
		return "aborted"
	case OutcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Success reports whether the drive is usable after the run.
func (o Outcome) Success() bool {
	return o == OutcomeAlreadyOnline || o == OutcomeMapped
}

// Result describes a finished mapping run.
type Result struct {
	Drive   string
	Share   string
	Outcome Outcome

	// Attempts is the number of connect calls made
	Attempts int

	// Sleeps is the number of retry waits between attempts
	Sleeps int

	// Remaining is the budget left: Timeout minus failed attempts.
	// It is -1 when a budget is fully exhausted.
	Remaining int

	// Disconnected is true if a stale mapping was removed first
	Disconnected bool

	// LastErr is the error from the last failed attempt, if any
	LastErr error

	Duration time.Duration
}
