// Package chat holds the chat domain: rooms, message payloads, poll state and
// the error taxonomy shared by the realtime protocol and the REST handlers.
package chat

import (
	"strconv"
	"strings"
)

// RoomKind is the flavour of a room.
type RoomKind string

const (
	KindGroup   RoomKind = "group"
	KindSession RoomKind = "session"
)

// ParseKind accepts "group" or "session", case-insensitively.
func ParseKind(s string) (RoomKind, error) {
	switch RoomKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindGroup:
		return KindGroup, nil
	case KindSession:
		return KindSession, nil
	}
	return "", invalid("unknown room kind " + strconv.Quote(s))
}

// RoomID is the canonical broadcast scope, "<kind>:<targetId>".
type RoomID string

// ResolveRoomID composes the room identifier. It never fails; whether the
// target exists is the membership oracle's business.
func ResolveRoomID(kind RoomKind, targetID uint) RoomID {
	return RoomID(string(kind) + ":" + strconv.FormatUint(uint64(targetID), 10))
}

// Target is the group or the session a message is addressed to.
type Target struct {
	Kind RoomKind
	ID   uint
}

func GroupTarget(id uint) Target   { return Target{Kind: KindGroup, ID: id} }
func SessionTarget(id uint) Target { return Target{Kind: KindSession, ID: id} }

// Room returns the room the target maps to.
func (t Target) Room() RoomID { return ResolveRoomID(t.Kind, t.ID) }

func (t Target) String() string { return string(t.Room()) }

// TargetFrom picks the id matching kind. A kind without its id is rejected.
func TargetFrom(kind string, groupID, sessionID uint) (Target, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Target{}, err
	}
	switch k {
	case KindGroup:
		if groupID == 0 {
			return Target{}, invalid("groupId is required")
		}
		return GroupTarget(groupID), nil
	default:
		if sessionID == 0 {
			return Target{}, invalid("sessionId is required")
		}
		return SessionTarget(sessionID), nil
	}
}
