// Package protocol defines the WebSocket message protocol between clients and the consultant.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event types from server to client
const (
	TypeMessage     = "message"
	TypeStreamStart = "stream_start"
	TypeStreamChunk = "stream_chunk"
	TypeStreamEnd   = "stream_end"
	TypeError       = "error"
)

// Control actions from client to server
const (
	ActionStart   = "start"
	ActionMessage = "message"
	ActionEnd     = "end"
)

// Event is a single outbound event.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// MessageEvent builds a non-streamed message event.
func MessageEvent(content string) Event { return Event{Type: TypeMessage, Content: content} }

// StreamStartEvent opens a streamed answer.
func StreamStartEvent() Event { return Event{Type: TypeStreamStart} }

// StreamChunkEvent carries a piece of a streamed answer.
func StreamChunkEvent(content string) Event { return Event{Type: TypeStreamChunk, Content: content} }

// StreamEndEvent closes a streamed answer.
func StreamEndEvent() Event { return Event{Type: TypeStreamEnd} }

// ErrorEvent reports a failed turn.
func ErrorEvent(content string) Event { return Event{Type: TypeError, Content: content} }

// ControlMessage is the optional structured envelope a client may send instead of plain text.
type ControlMessage struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// Inbound is a parsed client message.
type Inbound struct {
	Action string
	Text   string
}

// Blank reports whether the message carries no text.
func (in Inbound) Blank() bool { return strings.TrimSpace(in.Text) == "" }

// ErrInvalidControl is returned for a malformed control envelope.
var ErrInvalidControl = errors.New("invalid control message")

// ParseInbound interprets a client frame. Text whose first non-blank character
// is '{' must be a control envelope; anything else is a plain user message.
func ParseInbound(data []byte) (Inbound, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return Inbound{Action: ActionMessage, Text: trimmed}, nil
	}

	var ctrl ControlMessage
	if err := json.Unmarshal([]byte(trimmed), &ctrl); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrInvalidControl, err)
	}
	switch ctrl.Action {
	case ActionStart, ActionEnd:
		return Inbound{Action: ctrl.Action}, nil
	case ActionMessage:
		return Inbound{Action: ActionMessage, Text: strings.TrimSpace(ctrl.Text)}, nil
	case "":
		return Inbound{}, fmt.Errorf("%w: missing action", ErrInvalidControl)
	default:
		return Inbound{}, fmt.Errorf("%w: unknown action %q", ErrInvalidControl, ctrl.Action)
	}
}
