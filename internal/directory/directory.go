// Package directory answers membership questions about study groups and
// sessions from the directory tables.
package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/models"
)

// Directory is the gorm-backed membership oracle.
type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory { return &Directory{db: db} }

func (d *Directory) IsGroupMember(ctx context.Context, groupID, userID uint) (bool, error) {
	if _, err := d.group(ctx, groupID); err != nil {
		return false, err
	}
	var n int64
	err := d.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count group members: %w", err)
	}
	return n > 0, nil
}

func (d *Directory) IsSessionParticipantOrOrganizer(ctx context.Context, sessionID, userID uint) (bool, error) {
	s, err := d.session(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s.OrganizerID == userID {
		return true, nil
	}
	var n int64
	err = d.db.WithContext(ctx).Model(&models.SessionParticipant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count session participants: %w", err)
	}
	return n > 0, nil
}

// CanModerate reports whether userID administers the target: the group
// creator or the session organizer.
func (d *Directory) CanModerate(ctx context.Context, t chat.Target, userID uint) (bool, error) {
	switch t.Kind {
	case chat.KindGroup:
		g, err := d.group(ctx, t.ID)
		if err != nil {
			return false, err
		}
		return g.CreatorID == userID, nil
	case chat.KindSession:
		s, err := d.session(ctx, t.ID)
		if err != nil {
			return false, err
		}
		return s.OrganizerID == userID, nil
	}
	return false, fmt.Errorf("unknown room kind %q", t.Kind)
}

// Profile loads the public profile of a user.
func (d *Directory) Profile(ctx context.Context, userID uint) (chat.Profile, error) {
	var u models.User
	if err := d.db.WithContext(ctx).Select("id", "username").First(&u, userID).Error; err != nil {
		return chat.Profile{}, notFound(err, "user", userID)
	}
	return chat.Profile{ID: u.ID, Username: u.Username}, nil
}

func (d *Directory) group(ctx context.Context, id uint) (models.StudyGroup, error) {
	var g models.StudyGroup
	if err := d.db.WithContext(ctx).Select("id", "creator_id").First(&g, id).Error; err != nil {
		return g, notFound(err, "group", id)
	}
	return g, nil
}

func (d *Directory) session(ctx context.Context, id uint) (models.StudySession, error) {
	var s models.StudySession
	if err := d.db.WithContext(ctx).Select("id", "organizer_id").First(&s, id).Error; err != nil {
		return s, notFound(err, "session", id)
	}
	return s, nil
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.NotFound(entity, id)
	}
	return fmt.Errorf("load %s %d: %w", entity, id, err)
}
