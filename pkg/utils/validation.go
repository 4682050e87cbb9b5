package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// UNCPrefix is the two-separator prefix every share path must start with
const UNCPrefix = `\\`

// NormalizeDrive converts "s", "S", "s:" or "S:" into the canonical "S:".
// Anything else is rejected.
func NormalizeDrive(drive string) (string, error) {
	if len(drive) == 1 {
		drive += ":"
	}
	if len(drive) != 2 {
		return "", NewValidationError(ErrInvalidDrive, "driveLetter",
			"must be a single letter optionally followed by ':'")
	}

	letter := rune(drive[0])
	if drive[1] != ':' || letter > unicode.MaxASCII || !unicode.IsLetter(letter) {
		return "", NewValidationError(ErrInvalidDrive, "driveLetter",
			"must be a single letter optionally followed by ':'")
	}

	normalized := strings.ToUpper(drive)
	if !DriveLetterPattern.MatchString(normalized) {
		return "", NewValidationError(ErrInvalidDrive, "driveLetter", "not a drive letter")
	}
	return normalized, nil
}

// ValidateSharePath checks the path is in \\host\share form.
func ValidateSharePath(share string) error {
	if !strings.HasPrefix(share, UNCPrefix) {
		return NewValidationError(ErrInvalidShare, "sharePath", `must start with \\`)
	}
	if _, ok := UNCHost(share); !ok {
		return NewValidationError(ErrInvalidShare, "sharePath", "missing host name")
	}
	return nil
}

// ParseTimeout parses a non-negative number of seconds.
func ParseTimeout(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewValidationError(ErrInvalidTimeout, "timeoutSeconds", "not an integer")
	}
	if n < 0 {
		return 0, NewValidationError(ErrInvalidTimeout, "timeoutSeconds", "must not be negative")
	}
	return n, nil
}

// ValidateArgCount accepts exactly 2, 3 or 5 positional arguments:
// drive+share, plus timeout, plus username+password.
func ValidateArgCount(n int) error {
	switch n {
	case 2, 3, 5:
		return nil
	default:
		return NewValidationError(ErrArgumentCount, "arguments",
			"expected <driveLetter> <sharePath> [timeoutSeconds] [username password]")
	}
}
