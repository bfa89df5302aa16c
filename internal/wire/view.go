package wire

import (
	"time"

	"github.com/himalthapa1/EduConnect/internal/chat"
)

// SenderView is the public profile embedded in message views.
type SenderView struct {
	ID       uint   `json:"_id"`
	Username string `json:"username"`
}

// PollOptionView is one option with its current tally.
type PollOptionView struct {
	Text      string `json:"text"`
	VoteCount int    `json:"voteCount"`
	Voters    []uint `json:"voters"`
}

// PollView is the results shape shared by new-message, poll-updated and the
// REST poll endpoint.
type PollView struct {
	Question   string           `json:"question"`
	Options    []PollOptionView `json:"options"`
	TotalVotes int              `json:"totalVotes"`
}

func NewPollView(r chat.PollResults) *PollView {
	v := &PollView{Question: r.Question, TotalVotes: r.TotalVotes, Options: make([]PollOptionView, len(r.Options))}
	for i, o := range r.Options {
		voters := o.Voters
		if voters == nil {
			voters = []uint{}
		}
		v.Options[i] = PollOptionView{Text: o.Text, VoteCount: o.VoteCount, Voters: voters}
	}
	return v
}

// MessageView is the payload of new-message and the element of backlogs and
// history pages.
type MessageView struct {
	ID        uint             `json:"_id"`
	RoomID    chat.RoomID      `json:"roomId"`
	Type      chat.MessageType `json:"type"`
	Content   string           `json:"content"`
	AudioRef  string           `json:"audioRef,omitempty"`
	Poll      *PollView        `json:"poll,omitempty"`
	Sender    SenderView       `json:"sender"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewMessageView renders m with the sender's profile.
func NewMessageView(m chat.Message, sender chat.Profile) MessageView {
	v := MessageView{
		ID:        m.ID,
		RoomID:    m.Target.Room(),
		Type:      m.Type(),
		Content:   chat.Content(m.Payload),
		Sender:    SenderView{ID: sender.ID, Username: sender.Username},
		CreatedAt: m.CreatedAt,
	}
	if voice, ok := m.Payload.(chat.Voice); ok {
		v.AudioRef = voice.AudioRef
	}
	if m.Poll != nil {
		v.Poll = NewPollView(m.Poll.Results())
	}
	return v
}

// UnknownSender is shown for senders whose account no longer exists.
const UnknownSender = "Unknown user"

// NewMessageViews renders msgs in order, looking senders up in profiles.
func NewMessageViews(msgs []chat.Message, profiles map[uint]chat.Profile) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		p, ok := profiles[m.SenderID]
		if !ok {
			p = chat.Profile{ID: m.SenderID, Username: UnknownSender}
		}
		out = append(out, NewMessageView(m, p))
	}
	return out
}

// SenderIDs lists the distinct senders of msgs.
func SenderIDs(msgs []chat.Message) []uint {
	seen := make(map[uint]struct{}, len(msgs))
	ids := make([]uint, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	return ids
}

// RoomJoinedData answers a successful join with the backlog, oldest first.
type RoomJoinedData struct {
	RoomID   chat.RoomID   `json:"roomId"`
	Messages []MessageView `json:"messages"`
}

type PollUpdatedData struct {
	MessageID uint        `json:"messageId"`
	RoomID    chat.RoomID `json:"roomId"`
	Results   *PollView   `json:"results"`
}

type MessageDeletedData struct {
	MessageID uint        `json:"messageId"`
	RoomID    chat.RoomID `json:"roomId"`
}
