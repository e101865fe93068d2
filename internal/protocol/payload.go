package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PingContent is the fixed payload of a ping message.
const PingContent = "1"

// InitPayload is the content of the init message sent when a session opens.
type InitPayload struct {
	Arguments string `json:"Arguments"`
	AuthToken string `json:"AuthToken"`
}

// ResizePayload is the content of a resize message.
type ResizePayload struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// EncodeInit serializes an init payload.
func EncodeInit(arguments, authToken string) (string, error) {
	data, err := json.Marshal(InitPayload{Arguments: arguments, AuthToken: authToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode init payload: %w", err)
	}
	return string(data), nil
}

// EncodeResize serializes a resize payload.
func EncodeResize(columns, rows int) (string, error) {
	data, err := json.Marshal(ResizePayload{Columns: columns, Rows: rows})
	if err != nil {
		return "", fmt.Errorf("failed to encode resize payload: %w", err)
	}
	return string(data), nil
}

// DecodeOutput decodes the base64 content of an output or error message.
func DecodeOutput(content string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("invalid output payload: %w", err)
	}
	return string(data), nil
}

// EncodeOutput is the inverse of DecodeOutput.
func EncodeOutput(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// ParsePreferences parses the content of a set-preferences message.
func ParsePreferences(content string) (map[string]any, error) {
	var prefs map[string]any
	if err := json.Unmarshal([]byte(content), &prefs); err != nil {
		return nil, fmt.Errorf("invalid preferences payload: %w", err)
	}
	return prefs, nil
}

// ParseReconnectDelay parses the content of a set-autoreconnect message.
// A non-positive delay disables reconnection and is returned as 0. Delays
// too large for a time.Duration saturate at its maximum.
func ParseReconnectDelay(content string) (time.Duration, error) {
	var seconds float64
	if err := json.Unmarshal([]byte(content), &seconds); err != nil {
		return 0, fmt.Errorf("invalid reconnect payload: %w", err)
	}
	if seconds <= 0 {
		return 0, nil
	}
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
