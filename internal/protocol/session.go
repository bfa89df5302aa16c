// Package protocol is the per-connection chat state machine. Every inbound
// event goes through Protocol.Handle, which returns the next session state.
package protocol

import "github.com/himalthapa1/EduConnect/internal/chat"

type State int

const (
	Unauthenticated State = iota
	Authenticated
	InRoom
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case InRoom:
		return "in_room"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Session is the protocol state of one connection. Target is meaningful only
// in InRoom.
type Session struct {
	ConnID string
	UserID uint
	State  State
	Target chat.Target
}

// Room returns the joined room, or "" outside InRoom.
func (s Session) Room() chat.RoomID {
	if s.State != InRoom {
		return ""
	}
	return s.Target.Room()
}

func (s Session) authenticated() bool {
	return s.State == Authenticated || s.State == InRoom
}
