// Package session implements the client side of a terminal session: the
// connection state machine, inbound message dispatch, outbound forwarding
// and the server-controlled reconnect policy.
//
// A Controller runs one Session at a time. Each Session moves through
// Connecting, Active and Closed exactly once and owns its connection and
// heartbeat; both are released before a successor Session is created. All
// Session state is mutated on the goroutine running Controller.Run. The
// dialer, frame reader, heartbeat, terminal input and reconnect timer only
// post events to it.
package session
