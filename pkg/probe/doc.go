// Package probe checks whether a drive letter is mapped to a network share
// and whether that share's server is reachable on an SMB port.
//
// # Logging Verbosity Convention
//
//   - V(4): Debug level - probe decisions ("No SMB port reachable", resolution failures)
//   - V(5): Trace level - individual dial errors, skipped local drives
//
// Probe failures are never logged above V(4): an offline share is an expected
// state at boot, not an error.
package probe
