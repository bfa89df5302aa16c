package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

// Command is one decoded client event.
type Command interface {
	event() string
}

type JoinRoom struct {
	Target chat.Target
}

type SendMessage struct {
	Target  chat.Target
	Payload chat.Payload
}

type LeaveRoom struct {
	Target chat.Target
}

type VotePoll struct {
	MessageID   uint
	OptionIndex int
}

type DeleteMessage struct {
	MessageID uint
}

// Disconnect is raised by the transport when the connection goes away.
type Disconnect struct{}

// Invalid is a frame that could not be decoded into a command.
type Invalid struct {
	Event string
	Err   error
}

func (JoinRoom) event() string      { return wire.EventJoinRoom }
func (SendMessage) event() string   { return wire.EventSendMessage }
func (LeaveRoom) event() string     { return wire.EventLeaveRoom }
func (VotePoll) event() string      { return wire.EventVotePoll }
func (DeleteMessage) event() string { return wire.EventDeleteMessage }
func (Disconnect) event() string    { return "disconnect" }
func (i Invalid) event() string     { return i.Event }

// Decode turns a raw frame into a command. It never fails: undecodable
// frames become Invalid so they still go through Handle.
func Decode(frame []byte) Command {
	env, err := wire.Decode(frame)
	if err != nil {
		return Invalid{Err: &chat.ValidationError{Reason: err.Error()}}
	}
	cmd, err := decodeData(env)
	if err != nil {
		return Invalid{Event: env.Type, Err: err}
	}
	return cmd
}

func decodeData(env wire.Envelope) (Command, error) {
	switch env.Type {
	case wire.EventJoinRoom:
		var d wire.TargetData
		if err := unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		t, err := chat.TargetFrom(d.RoomKind(), d.GroupID, d.SessionID)
		if err != nil {
			return nil, err
		}
		return JoinRoom{Target: t}, nil

	case wire.EventLeaveRoom:
		var d wire.TargetData
		if err := unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		t, err := chat.TargetFrom(d.RoomKind(), d.GroupID, d.SessionID)
		if err != nil {
			return nil, err
		}
		return LeaveRoom{Target: t}, nil

	case wire.EventSendMessage:
		var d wire.SendMessageData
		if err := unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		t, err := chat.TargetFrom(d.RoomKind(), d.GroupID, d.SessionID)
		if err != nil {
			return nil, err
		}
		p, err := d.Payload()
		if err != nil {
			return nil, err
		}
		return SendMessage{Target: t, Payload: p}, nil

	case wire.EventVotePoll:
		var d wire.VotePollData
		if err := unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		if d.MessageID == 0 {
			return nil, &chat.ValidationError{Reason: "messageId is required"}
		}
		if d.OptionIndex == nil {
			return nil, &chat.ValidationError{Reason: "optionIndex is required"}
		}
		return VotePoll{MessageID: d.MessageID, OptionIndex: *d.OptionIndex}, nil

	case wire.EventDeleteMessage:
		var d wire.DeleteMessageData
		if err := unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		if d.MessageID == 0 {
			return nil, &chat.ValidationError{Reason: "messageId is required"}
		}
		return DeleteMessage{MessageID: d.MessageID}, nil
	}
	return nil, &chat.ValidationError{Reason: fmt.Sprintf("unknown event %q", env.Type)}
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return &chat.ValidationError{Reason: "missing data"}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &chat.ValidationError{Reason: err.Error()}
	}
	return nil
}
