// Package store persists chat messages, poll options and poll votes.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/himalthapa1/EduConnect/internal/blob"
	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/models"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Store is the gorm-backed message store.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Append persists a draft and returns it with its id and timestamp. Poll
// options are written in the same transaction. A voice draft whose audio is
// already referenced by another message fails with chat.ErrAudioInUse.
func (s *Store) Append(ctx context.Context, d chat.Draft) (chat.Message, error) {
	row := models.Message{
		SenderID: d.SenderID,
		Type:     string(d.Payload.Type()),
		Content:  chat.Content(d.Payload),
	}
	switch d.Target.Kind {
	case chat.KindGroup:
		row.GroupID = &d.Target.ID
	case chat.KindSession:
		row.SessionID = &d.Target.ID
	default:
		return chat.Message{}, fmt.Errorf("append: unknown room kind %q", d.Target.Kind)
	}
	switch p := d.Payload.(type) {
	case chat.Voice:
		row.AudioRef = p.AudioRef
	case chat.Poll:
		for i, text := range p.Options {
			row.PollOptions = append(row.PollOptions, models.PollOption{Position: i, Text: text})
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.AudioRef != "" {
			inUse, err := audioRefInUse(tx, row.AudioRef)
			if err != nil {
				return err
			}
			if inUse {
				return chat.ErrAudioInUse
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("append message: %w", err)
	}
	return toDomain(row)
}

// Recent returns the newest limit messages of t, oldest first.
func (s *Store) Recent(ctx context.Context, t chat.Target, limit int) ([]chat.Message, error) {
	var rows []models.Message
	err := s.scoped(ctx, t).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages of %s: %w", t, err)
	}
	slices.Reverse(rows)
	return toDomainAll(rows)
}

// Query selects a page of history. Pages are counted from the newest
// message; Newest keeps that order instead of returning the page oldest
// first.
type Query struct {
	Page   int
	Limit  int
	Newest bool
}

type Page struct {
	Messages []chat.Message
	Total    int64
	Page     int
	Limit    int
	HasMore  bool
}

func (s *Store) Page(ctx context.Context, t chat.Target, q Query) (Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	q.Limit = min(q.Limit, MaxPageLimit)

	var total int64
	if err := inRoom(s.db.WithContext(ctx).Model(&models.Message{}), t).Count(&total).Error; err != nil {
		return Page{}, fmt.Errorf("count messages of %s: %w", t, err)
	}
	var rows []models.Message
	err := s.scoped(ctx, t).Order("created_at DESC, id DESC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Find(&rows).Error
	if err != nil {
		return Page{}, fmt.Errorf("page messages of %s: %w", t, err)
	}
	if !q.Newest {
		slices.Reverse(rows)
	}
	msgs, err := toDomainAll(rows)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Messages: msgs,
		Total:    total,
		Page:     q.Page,
		Limit:    q.Limit,
		HasMore:  int64(q.Page*q.Limit) < total,
	}, nil
}

func (s *Store) Get(ctx context.Context, id uint) (chat.Message, error) {
	var row models.Message
	err := s.db.WithContext(ctx).Preload("PollOptions", orderBy("position")).Preload("PollVotes", orderBy("id")).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, chat.NotFound("message", id)
		}
		return chat.Message{}, fmt.Errorf("load message %d: %w", id, err)
	}
	return toDomain(row)
}

// Delete removes a message with its options and votes.
func (s *Store) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.PollVote{}).Error; err != nil {
			return fmt.Errorf("delete votes of %d: %w", id, err)
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.PollOption{}).Error; err != nil {
			return fmt.Errorf("delete options of %d: %w", id, err)
		}
		res := tx.Delete(&models.Message{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete message %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return chat.NotFound("message", id)
		}
		return nil
	})
}

// AudioRefInUse reports whether any message still points at the object ref
// names, whichever path form the message stored.
func (s *Store) AudioRefInUse(ctx context.Context, ref string) (bool, error) {
	return audioRefInUse(s.db.WithContext(ctx), ref)
}

func audioRefInUse(q *gorm.DB, ref string) (bool, error) {
	q = q.Model(&models.Message{})
	if name, err := blob.Name(ref); err == nil {
		q = q.Where("audio_ref = ? OR audio_ref LIKE ?", name, "%/"+name)
	} else {
		q = q.Where("audio_ref = ?", ref)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("count audio refs: %w", err)
	}
	return n > 0, nil
}

// LoadPoll returns the vote state of a poll message and the room it lives in.
func (s *Store) LoadPoll(ctx context.Context, id uint) (*chat.PollState, chat.Target, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, chat.Target{}, err
	}
	if m.Poll == nil {
		return nil, chat.Target{}, fmt.Errorf("%w: message %d is not a poll", chat.ErrInvalidOption, id)
	}
	return m.Poll, m.Target, nil
}

// ReplaceVote records userID's vote, replacing any previous one.
func (s *Store) ReplaceVote(ctx context.Context, messageID, userID uint, optionIndex int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ? AND user_id = ?", messageID, userID).Delete(&models.PollVote{}).Error; err != nil {
			return fmt.Errorf("delete previous vote: %w", err)
		}
		vote := models.PollVote{MessageID: messageID, UserID: userID, OptionIndex: optionIndex}
		if err := tx.Create(&vote).Error; err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
		return nil
	})
}

func (s *Store) scoped(ctx context.Context, t chat.Target) *gorm.DB {
	return inRoom(s.db.WithContext(ctx).Preload("PollOptions", orderBy("position")).Preload("PollVotes", orderBy("id")), t)
}

func inRoom(q *gorm.DB, t chat.Target) *gorm.DB {
	if t.Kind == chat.KindGroup {
		return q.Where("group_id = ?", t.ID)
	}
	return q.Where("session_id = ?", t.ID)
}

func orderBy(col string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Order(col) }
}
