package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType represents the type of a protocol message.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeInit   MessageType = "init"
	MessageTypeInput  MessageType = "input"
	MessageTypeResize MessageType = "resize"
	MessageTypePing   MessageType = "ping"

	// Server -> Client message types
	MessageTypeOutput           MessageType = "output"
	MessageTypePong             MessageType = "pong"
	MessageTypeSetTitle         MessageType = "set-title"
	MessageTypeSetPreferences   MessageType = "set-preferences"
	MessageTypeSetAutoReconnect MessageType = "set-autoreconnect"
	MessageTypeError            MessageType = "error"
)

// ErrMalformedMessage is returned by Decode when a frame is not a valid envelope.
var ErrMalformedMessage = errors.New("malformed message")

// Message is the wire unit. Content is opaque to the codec; structured
// payloads are serialized values embedded as a string.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// envelope is the decoding shape. Content is kept raw so that servers sending
// a bare JSON value instead of a string still decode.
type envelope struct {
	Type    *string         `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Encode serializes a message envelope.
func Encode(t MessageType, content string) ([]byte, error) {
	data, err := json.Marshal(Message{Type: t, Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", t, err)
	}
	return data, nil
}

// Decode parses a single frame into a Message.
// It fails with ErrMalformedMessage when data is not a JSON object with a
// string "type" field.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == nil {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	msg := Message{Type: MessageType(*env.Type)}

	raw := bytes.TrimSpace(env.Content)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		// Absent content is an empty payload.
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &msg.Content); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	default:
		msg.Content = string(raw)
	}

	return msg, nil
}

// InvalidMessageText returns the diagnostic written to the terminal for a
// frame that could not be handled.
func InvalidMessageText(raw string) string {
	return "Invalid message: " + raw
}
