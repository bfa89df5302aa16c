// Package poll applies votes to poll messages one at a time per poll.
package poll

import (
	"context"
	"sync"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/metrics"
)

// Store is the persistence the engine needs.
type Store interface {
	LoadPoll(ctx context.Context, messageID uint) (*chat.PollState, chat.Target, error)
	ReplaceVote(ctx context.Context, messageID, userID uint, optionIndex int) error
}

// Engine serialises votes per poll. Votes on different polls do not wait on
// each other.
type Engine struct {
	store Store

	mu    sync.Mutex
	locks map[uint]*pollLock
}

type pollLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, locks: make(map[uint]*pollLock)}
}

// Vote moves userID's vote on messageID to optionIndex and returns the
// recomputed results with the poll's target.
func (e *Engine) Vote(ctx context.Context, messageID, userID uint, optionIndex int) (chat.PollResults, chat.Target, error) {
	unlock := e.lock(messageID)
	defer unlock()

	state, target, err := e.store.LoadPoll(ctx, messageID)
	if err != nil {
		return chat.PollResults{}, chat.Target{}, err
	}
	if err := state.Vote(userID, optionIndex); err != nil {
		return chat.PollResults{}, chat.Target{}, err
	}
	if err := e.store.ReplaceVote(ctx, messageID, userID, optionIndex); err != nil {
		return chat.PollResults{}, chat.Target{}, err
	}
	metrics.PollVotesTotal.Inc()
	return state.Results(), target, nil
}

// Results returns the current tally without voting.
func (e *Engine) Results(ctx context.Context, messageID uint) (chat.PollResults, chat.Target, error) {
	state, target, err := e.store.LoadPoll(ctx, messageID)
	if err != nil {
		return chat.PollResults{}, chat.Target{}, err
	}
	return state.Results(), target, nil
}

func (e *Engine) lock(id uint) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &pollLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}
