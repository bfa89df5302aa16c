package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/models"
	"github.com/himalthapa1/EduConnect/internal/testutil"
)

func appendTexts(t *testing.T, s *Store, target chat.Target, sender uint, n int) []chat.Message {
	t.Helper()
	out := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		m, err := s.Append(context.Background(), chat.Draft{Target: target, SenderID: sender, Payload: chat.Text{Body: fmt.Sprintf("m%d", i)}})
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func bodies(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = chat.Content(m.Payload)
	}
	return out
}

func TestAppendAndGet(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	ctx := context.Background()

	voice, err := s.Append(ctx, chat.Draft{Target: chat.SessionTarget(4), SenderID: 1, Payload: chat.Voice{AudioRef: "a.webm", Caption: "Voice message"}})
	require.NoError(t, err)
	assert.NotZero(t, voice.ID)
	assert.False(t, voice.CreatedAt.IsZero())

	got, err := s.Get(ctx, voice.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.SessionTarget(4), got.Target)
	assert.Equal(t, chat.Voice{AudioRef: "a.webm", Caption: "Voice message"}, got.Payload)
	assert.Nil(t, got.Poll)

	_, err = s.Get(ctx, 999)
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestAudioRefBelongsToOneMessage(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	ctx := context.Background()
	draft := chat.Draft{Target: chat.GroupTarget(1), SenderID: 1, Payload: chat.Voice{AudioRef: "a.webm", Caption: "Voice message"}}

	first, err := s.Append(ctx, draft)
	require.NoError(t, err)
	inUse, err := s.AudioRefInUse(ctx, "a.webm")
	require.NoError(t, err)
	assert.True(t, inUse)

	draft.SenderID = 2
	_, err = s.Append(ctx, draft)
	assert.ErrorIs(t, err, chat.ErrAudioInUse)
	assert.ErrorIs(t, err, chat.ErrValidation)

	draft.Payload = chat.Voice{AudioRef: "/uploads/a.webm", Caption: "Voice message"}
	_, err = s.Append(ctx, draft)
	assert.ErrorIs(t, err, chat.ErrAudioInUse)

	require.NoError(t, s.Delete(ctx, first.ID))
	inUse, err = s.AudioRefInUse(ctx, "a.webm")
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestRecentIsOldestFirstAndScoped(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	appendTexts(t, s, chat.GroupTarget(1), 1, 5)
	appendTexts(t, s, chat.SessionTarget(1), 1, 2)

	got, err := s.Recent(context.Background(), chat.GroupTarget(1), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m4"}, bodies(got))

	got, err = s.Recent(context.Background(), chat.SessionTarget(1), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"m0", "m1"}, bodies(got))

	got, err = s.Recent(context.Background(), chat.GroupTarget(2), 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPage(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	appendTexts(t, s, chat.GroupTarget(1), 1, 5)
	ctx := context.Background()

	p, err := s.Page(ctx, chat.GroupTarget(1), Query{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m4"}, bodies(p.Messages))
	assert.Equal(t, int64(5), p.Total)
	assert.True(t, p.HasMore)

	p, err = s.Page(ctx, chat.GroupTarget(1), Query{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m0"}, bodies(p.Messages))
	assert.False(t, p.HasMore)

	p, err = s.Page(ctx, chat.GroupTarget(1), Query{Page: 1, Limit: 2, Newest: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m3"}, bodies(p.Messages))

	p, err = s.Page(ctx, chat.GroupTarget(1), Query{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Len(t, p.Messages, 5)
}

func TestPollVotesRoundTrip(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	ctx := context.Background()

	m, err := s.Append(ctx, chat.Draft{Target: chat.GroupTarget(1), SenderID: 1, Payload: chat.Poll{Question: "Lunch?", Options: []string{"pizza", "sushi"}}})
	require.NoError(t, err)
	require.NotNil(t, m.Poll)
	assert.Equal(t, []int{0, 0}, m.Poll.Results().Counts())

	require.NoError(t, s.ReplaceVote(ctx, m.ID, 2, 0))
	require.NoError(t, s.ReplaceVote(ctx, m.ID, 3, 0))
	require.NoError(t, s.ReplaceVote(ctx, m.ID, 2, 1))

	state, target, err := s.LoadPoll(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.GroupTarget(1), target)
	res := state.Results()
	assert.Equal(t, []int{1, 1}, res.Counts())
	assert.Equal(t, []uint{3}, res.Options[0].Voters)
	assert.Equal(t, []uint{2}, res.Options[1].Voters)

	var votes int64
	require.NoError(t, gdb.Model(&models.PollVote{}).Where("message_id = ?", m.ID).Count(&votes).Error)
	assert.Equal(t, int64(2), votes)
}

func TestLoadPollOnTextMessage(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	msgs := appendTexts(t, s, chat.GroupTarget(1), 1, 1)

	_, _, err := s.LoadPoll(context.Background(), msgs[0].ID)
	assert.ErrorIs(t, err, chat.ErrInvalidOption)
}

func TestDelete(t *testing.T) {
	gdb := testutil.OpenDB(t)
	s := New(gdb)
	ctx := context.Background()

	m, err := s.Append(ctx, chat.Draft{Target: chat.GroupTarget(1), SenderID: 1, Payload: chat.Poll{Question: "Q", Options: []string{"a", "b"}}})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceVote(ctx, m.ID, 1, 1))

	require.NoError(t, s.Delete(ctx, m.ID))
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, chat.ErrNotFound)

	var n int64
	require.NoError(t, gdb.Model(&models.PollOption{}).Count(&n).Error)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.Delete(ctx, m.ID), chat.ErrNotFound)
}
