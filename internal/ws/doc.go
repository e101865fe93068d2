// Package ws provides the websocket transport for terminal sessions.
//
// The package implements:
//   - Dialer: opens client connections to a terminal endpoint
//   - Conn: a frame-oriented connection with guarded writes
//
// Every frame carries exactly one protocol message. Writes after the
// connection has closed are reported as ErrClosed so callers can drop them
// without treating them as failures.
package ws
