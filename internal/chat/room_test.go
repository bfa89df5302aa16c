package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoomID(t *testing.T) {
	assert.Equal(t, RoomID("group:12"), ResolveRoomID(KindGroup, 12))
	assert.Equal(t, RoomID("session:3"), SessionTarget(3).Room())
	assert.NotEqual(t, GroupTarget(3).Room(), SessionTarget(3).Room())
}

func TestTargetFrom(t *testing.T) {
	tests := []struct {
		kind      string
		group     uint
		session   uint
		want      Target
		wantError bool
	}{
		{"group", 4, 0, GroupTarget(4), false},
		{"GROUP", 4, 9, GroupTarget(4), false},
		{"session", 0, 9, SessionTarget(9), false},
		{"group", 0, 9, Target{}, true},
		{"session", 4, 0, Target{}, true},
		{"channel", 4, 9, Target{}, true},
	}
	for _, tt := range tests {
		got, err := TargetFrom(tt.kind, tt.group, tt.session)
		if tt.wantError {
			assert.ErrorIs(t, err, ErrValidation, "TargetFrom(%q, %d, %d)", tt.kind, tt.group, tt.session)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

type fakeMembership struct {
	groups   map[uint][]uint
	sessions map[uint][]uint
	err      error
}

func (f fakeMembership) IsGroupMember(_ context.Context, groupID, userID uint) (bool, error) {
	return lookup(f.groups, groupID, userID, f.err)
}

func (f fakeMembership) IsSessionParticipantOrOrganizer(_ context.Context, sessionID, userID uint) (bool, error) {
	return lookup(f.sessions, sessionID, userID, f.err)
}

func lookup(m map[uint][]uint, id, user uint, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	members, ok := m[id]
	if !ok {
		return false, ErrNotFound
	}
	for _, u := range members {
		if u == user {
			return true, nil
		}
	}
	return false, nil
}

func TestAuthorize(t *testing.T) {
	m := fakeMembership{
		groups:   map[uint][]uint{1: {10, 11}},
		sessions: map[uint][]uint{2: {10}},
	}
	ctx := context.Background()

	assert.NoError(t, Authorize(ctx, m, GroupTarget(1), 11))
	assert.ErrorIs(t, Authorize(ctx, m, GroupTarget(1), 12), ErrAccessDenied)
	assert.ErrorIs(t, Authorize(ctx, m, GroupTarget(5), 10), ErrNotFound)
	assert.NoError(t, Authorize(ctx, m, SessionTarget(2), 10))
	assert.ErrorIs(t, Authorize(ctx, m, SessionTarget(2), 11), ErrAccessDenied)
	assert.ErrorIs(t, Authorize(ctx, m, Target{Kind: "channel", ID: 1}, 10), ErrValidation)

	boom := errors.New("db down")
	assert.ErrorIs(t, Authorize(ctx, fakeMembership{err: boom}, GroupTarget(1), 10), boom)
}

func TestMessageCanDelete(t *testing.T) {
	m := Message{SenderID: 3}
	assert.True(t, m.CanDelete(3, false))
	assert.True(t, m.CanDelete(4, true))
	assert.False(t, m.CanDelete(4, false))
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFound("group", 4))
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "group", nf.Entity)
	assert.Equal(t, "load: group 4: not found", err.Error())
}
