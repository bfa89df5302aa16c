package store

import (
	"fmt"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/models"
)

func toDomain(row models.Message) (chat.Message, error) {
	m := chat.Message{ID: row.ID, SenderID: row.SenderID, CreatedAt: row.CreatedAt}
	switch {
	case row.GroupID != nil:
		m.Target = chat.GroupTarget(*row.GroupID)
	case row.SessionID != nil:
		m.Target = chat.SessionTarget(*row.SessionID)
	default:
		return chat.Message{}, fmt.Errorf("message %d has no room", row.ID)
	}

	switch chat.MessageType(row.Type) {
	case chat.TypeText:
		m.Payload = chat.Text{Body: row.Content}
	case chat.TypeVoice:
		m.Payload = chat.Voice{AudioRef: row.AudioRef, Caption: row.Content}
	case chat.TypePoll:
		p := chat.Poll{Question: row.Content, Options: make([]string, len(row.PollOptions))}
		for i, o := range row.PollOptions {
			p.Options[i] = o.Text
		}
		m.Payload = p
		m.Poll = chat.NewPollState(row.ID, p)
		for _, v := range row.PollVotes {
			// rows are in id order, so replaying them rebuilds voter order
			if err := m.Poll.Vote(v.UserID, v.OptionIndex); err != nil {
				return chat.Message{}, fmt.Errorf("message %d: %w", row.ID, err)
			}
		}
	default:
		return chat.Message{}, fmt.Errorf("message %d has unknown type %q", row.ID, row.Type)
	}
	return m, nil
}

func toDomainAll(rows []models.Message) ([]chat.Message, error) {
	out := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		m, err := toDomain(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
