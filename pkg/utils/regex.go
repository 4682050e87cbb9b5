package utils

import (
	"regexp"
)

// Patterns for Windows drive and UNC path parsing.
// All patterns are anchored and use simple character classes (no nested quantifiers).
var (
	// DriveLetterPattern matches a normalized drive designator ("S:")
	DriveLetterPattern = regexp.MustCompile(`^[A-Z]:$`)

	// UNCHostPattern captures the host segment of \\host\share[\...]
	// The trailing separator is optional so \\host alone also matches.
	UNCHostPattern = regexp.MustCompile(`^\\\\([^\\]+)\\?`)
)

// UNCHost returns the host segment of a UNC path, or false if the path is not
// of the form \\host[\...].
func UNCHost(uncPath string) (string, bool) {
	m := UNCHostPattern.FindStringSubmatch(uncPath)
	if m == nil {
		return "", false
	}
	return m[1], true
}
