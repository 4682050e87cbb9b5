// Package wnet binds the Windows networking (WNet) API used to connect and
// disconnect drive-letter mappings to SMB shares.
//
// Flags and records mirror the fixed Win32 shapes (NETRESOURCE,
// CONNECT_* flags). All calls go through the Client interface so callers can
// be tested against test/mock on any platform. Only the Windows build talks to
// the OS; other platforms return ErrUnsupported from every call.
//
// # Logging Verbosity Convention
//
//   - V(4): Debug level - each native call and its result code
//   - V(5): Trace level - buffer sizes, raw drive bitmasks
//
// Production deployments use V(2) by default. Set --v=4 for troubleshooting.
package wnet
