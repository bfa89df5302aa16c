// Package wire defines the realtime frame format: a {"type","data"} envelope
// and the JSON views of messages, polls and errors.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client to server events.
const (
	EventJoinRoom      = "join-room"
	EventSendMessage   = "send-message"
	EventLeaveRoom     = "leave-room"
	EventVotePoll      = "vote-poll"
	EventDeleteMessage = "delete-message"
)

// Server to client events.
const (
	EventRoomJoined     = "room-joined"
	EventNewMessage     = "new-message"
	EventPollUpdated    = "poll-updated"
	EventMessageDeleted = "message-deleted"
	EventError          = "error"
)

// Envelope is one websocket frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode marshals data into a frame of the given type.
func Encode(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Data: raw})
}

// Decode splits a frame into its type and raw data.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, errors.New("missing event type")
	}
	return env, nil
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// ErrorFrame builds an error event. Encoding a string never fails.
func ErrorFrame(message string) []byte {
	b, _ := Encode(EventError, ErrorData{Message: message})
	return b
}
