// internal/handlers/ws_codes.go
package handlers

// Structured error codes carried inside outbound error events on the
// coordinator socket. These are protocol-level codes clients key off, not
// WebSocket close codes.
const (
	// DuplicateDeviceError is sent to an existing connection when the same
	// principal connects from a second device; the old connection is then
	// force-disconnected.
	DuplicateDeviceError = 1000
	// UnauthorizedError is sent when the bearer credential is missing,
	// malformed or expired; the connection is closed immediately after.
	UnauthorizedError = 3000
)
