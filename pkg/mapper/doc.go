// Package mapper maps a network share to a drive letter, retrying on a fixed
// interval until the mapping succeeds or the timeout budget runs out.
//
// # Logging Verbosity Convention
//
// This package follows Kubernetes logging conventions for verbosity levels:
//
//   - V(0): Always visible - final outcome of a mapping run
//   - V(2): Production default - state changes and failed attempts
//     Examples: "Disconnecting stale mapping", "Connect attempt failed"
//   - V(4): Debug level - retry waits
//
// V(3) is avoided in favor of V(2) (if actionable) or V(4) (if diagnostic).
//
// Production deployments use V(2) by default. Set --v=4 for troubleshooting.
package mapper
