// Package protocol implements the wire format spoken between the terminal
// client and the remote terminal server.
//
// The package implements:
//   - Message: the {type, content} envelope carried by every frame
//   - Encode/Decode: the envelope codec, one Message per frame
//   - Payload helpers: init, resize, output, preferences and reconnect payloads
//   - Endpoint: derivation of the websocket URL from a page URL
//
// The codec is pure; it performs no I/O and keeps no state.
package protocol
