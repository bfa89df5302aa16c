package wire

import (
	"fmt"

	"github.com/himalthapa1/EduConnect/internal/chat"
)

// TargetData addresses a room. Kind is the documented field; older clients
// send it as "type" or "chatType".
type TargetData struct {
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	ChatType  string `json:"chatType"`
	GroupID   uint   `json:"groupId"`
	SessionID uint   `json:"sessionId"`
}

// RoomKind returns the first non-empty kind field.
func (t TargetData) RoomKind() string {
	switch {
	case t.Kind != "":
		return t.Kind
	case t.ChatType != "":
		return t.ChatType
	}
	return t.Type
}

// PollData is the poll part of a send-message request.
type PollData struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// SendMessageData is the payload of send-message. MessageType defaults to text.
type SendMessageData struct {
	TargetData
	MessageType string    `json:"messageType"`
	Content     string    `json:"content"`
	AudioRef    string    `json:"audioRef"`
	Poll        *PollData `json:"poll"`
}

// Payload builds the message payload. It only picks the variant; content
// rules are applied by chat.Normalize.
func (d SendMessageData) Payload() (chat.Payload, error) {
	switch chat.MessageType(d.MessageType) {
	case "", chat.TypeText:
		return chat.Text{Body: d.Content}, nil
	case chat.TypeVoice:
		return chat.Voice{AudioRef: d.AudioRef, Caption: d.Content}, nil
	case chat.TypePoll:
		if d.Poll == nil {
			return nil, &chat.ValidationError{Reason: "poll data is required"}
		}
		q := d.Poll.Question
		if q == "" {
			q = d.Content
		}
		return chat.Poll{Question: q, Options: d.Poll.Options}, nil
	}
	return nil, &chat.ValidationError{Reason: fmt.Sprintf("unsupported message type %q", d.MessageType)}
}

type VotePollData struct {
	MessageID   uint `json:"messageId"`
	OptionIndex *int `json:"optionIndex"`
}

type DeleteMessageData struct {
	MessageID uint `json:"messageId"`
}
