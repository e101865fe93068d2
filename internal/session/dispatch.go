package session

import (
	"fmt"
	"sort"

	"github.com/remote-agent-terminal/ttyclient/internal/logging"
	"github.com/remote-agent-terminal/ttyclient/internal/protocol"
)

// handlerFunc handles one inbound message type. raw is the undecoded frame,
// used for diagnostics.
type handlerFunc func(c *Controller, msg protocol.Message, raw []byte)

var handlers = map[protocol.MessageType]handlerFunc{
	protocol.MessageTypeOutput:           (*Controller).handleOutput,
	protocol.MessageTypePong:             (*Controller).handlePong,
	protocol.MessageTypeSetTitle:         (*Controller).handleSetTitle,
	protocol.MessageTypeSetPreferences:   (*Controller).handleSetPreferences,
	protocol.MessageTypeSetAutoReconnect: (*Controller).handleSetAutoReconnect,
	protocol.MessageTypeError:            (*Controller).handleOutput,
}

// dispatch decodes one frame and routes it to its handler. Nothing a
// server sends ends the Session; undecodable frames and unknown types are
// printed to the terminal as diagnostics.
func (c *Controller) dispatch(raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.invalid(raw, err)
		return
	}

	handler, ok := handlers[msg.Type]
	if !ok {
		c.invalid(raw, fmt.Errorf("unknown message type %q", msg.Type))
		return
	}
	handler(c, msg, raw)
}

func (c *Controller) invalid(raw []byte, cause error) {
	c.log.Debug("invalid message", logging.Field{Key: "raw", Value: string(raw)}, logging.Err(cause))
	c.sink.WriteUTF8(protocol.InvalidMessageText(string(raw)))
}

// handleOutput also serves error messages, which carry the same payload.
func (c *Controller) handleOutput(msg protocol.Message, raw []byte) {
	text, err := protocol.DecodeOutput(msg.Content)
	if err != nil {
		c.invalid(raw, err)
		return
	}
	c.sink.WriteUTF8(text)
}

func (c *Controller) handlePong(protocol.Message, []byte) {}

func (c *Controller) handleSetTitle(msg protocol.Message, _ []byte) {
	c.sink.SetWindowTitle(msg.Content)
}

func (c *Controller) handleSetPreferences(msg protocol.Message, raw []byte) {
	prefs, err := protocol.ParsePreferences(msg.Content)
	if err != nil {
		c.invalid(raw, err)
		return
	}

	keys := make([]string, 0, len(prefs))
	for key := range prefs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		c.log.Info("setting preference", logging.Field{Key: "key", Value: key}, logging.Field{Key: "value", Value: prefs[key]})
		c.sink.SetPreference(key, prefs[key])
	}
}

func (c *Controller) handleSetAutoReconnect(msg protocol.Message, raw []byte) {
	delay, err := protocol.ParseReconnectDelay(msg.Content)
	if err != nil {
		c.invalid(raw, err)
		return
	}

	c.policy.Set(delay)
	if delay > 0 {
		c.log.Info("enabling reconnect", logging.Field{Key: "delay", Value: delay.String()})
	} else {
		c.log.Info("disabling reconnect")
	}
}
