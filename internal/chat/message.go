package chat

import "time"

// Profile is the minimal public view of a user attached to broadcasts.
type Profile struct {
	ID       uint
	Username string
}

// Draft is a validated message that has not been persisted yet.
type Draft struct {
	Target   Target
	SenderID uint
	Payload  Payload
}

// Message is a persisted message. Poll is set iff the payload is a Poll and
// carries the current vote sub-state.
type Message struct {
	ID        uint
	Target    Target
	SenderID  uint
	Payload   Payload
	Poll      *PollState
	CreatedAt time.Time
}

func (m Message) Type() MessageType { return m.Payload.Type() }

// CanDelete reports whether userID may delete m. Moderators are the group
// admin or the session organizer.
func (m Message) CanDelete(userID uint, moderator bool) bool {
	return m.SenderID == userID || moderator
}
