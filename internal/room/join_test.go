package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinKeepsOldRoomUntilCommit(t *testing.T) {
	r := NewRegistry()
	a := newSub("a")
	r.Subscribe(groupA, a)

	j := r.Prepare(groupB, a)
	r.Broadcast(groupA, []byte("old-1"))
	r.Broadcast(groupB, []byte("new-1"))
	assert.Equal(t, []string{"old-1"}, a.got(), "still in the old room")

	prev, had, err := j.Commit([]byte("joined"))
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, groupA, prev)
	r.Broadcast(groupA, []byte("old-2"))
	r.Broadcast(groupB, []byte("new-2"))

	assert.Equal(t, []string{"old-1", "joined", "new-1", "new-2"}, a.got())
	assert.Empty(t, r.joins, "resolved joins are collected")
}

func TestAbortedJoinLeavesNoTrace(t *testing.T) {
	r := NewRegistry()
	a := newSub("a")
	r.Subscribe(groupA, a)

	j := r.Prepare(groupB, a)
	r.Broadcast(groupB, []byte("new-1"))
	j.Abort()
	j.Abort()
	r.Broadcast(groupA, []byte("old-1"))
	r.Broadcast(groupB, []byte("new-2"))

	assert.Equal(t, []string{"old-1"}, a.got())
	assert.Empty(t, r.joins)
	cur, _ := r.Current("a")
	assert.Equal(t, groupA, cur)

	_, _, err := j.Commit([]byte("late"))
	assert.Error(t, err)
}

func TestRejoinSameRoomDoesNotDuplicate(t *testing.T) {
	r := NewRegistry()
	a := newSub("a")
	r.Subscribe(groupA, a)

	j := r.Prepare(groupA, a)
	r.Broadcast(groupA, []byte("live"))
	_, _, err := j.Commit([]byte("joined"))
	require.NoError(t, err)

	assert.Equal(t, []string{"live", "joined"}, a.got())
}

func TestJoinOverflowKeepsOldRoom(t *testing.T) {
	r := NewRegistry()
	a := newSub("a")
	r.Subscribe(groupA, a)

	j := r.Prepare(groupB, a)
	for i := 0; i <= maxPending; i++ {
		r.Broadcast(groupB, []byte(fmt.Sprint(i)))
	}
	_, _, err := j.Commit([]byte("joined"))
	assert.ErrorIs(t, err, ErrJoinOverflow)

	cur, ok := r.Current("a")
	assert.True(t, ok)
	assert.Equal(t, groupA, cur)
	assert.Empty(t, a.got())
}

func TestCommitIntoFullQueueLeavesNoRoom(t *testing.T) {
	r := NewRegistry()
	a := newSub("a")
	a.cap = 1
	r.Subscribe(groupA, a)

	j := r.Prepare(groupB, a)
	r.Broadcast(groupB, []byte("new-1"))
	_, _, err := j.Commit([]byte("joined"))
	assert.Error(t, err)

	_, ok := r.Current("a")
	assert.False(t, ok)
	assert.Empty(t, r.MembersOf(groupB))
	assert.Equal(t, []string{"joined"}, a.got())
}
