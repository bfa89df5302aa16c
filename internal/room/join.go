package room

import (
	"errors"

	"github.com/himalthapa1/EduConnect/internal/chat"
)

// maxPending bounds the frames held for a connection while its join is in
// flight.
const maxPending = 256

var ErrJoinOverflow = errors.New("too many frames while joining")

// Join is a room switch in progress. Until Commit the connection stays in
// its current room and frames broadcast to the target room are held for it,
// so neither room loses frames whether the join succeeds or not.
type Join struct {
	r        *Registry
	room     chat.RoomID
	sub      Subscriber
	held     [][]byte
	overflow bool
	done     bool
}

// Prepare starts a join of sub to room. Resolve it with Commit or Abort.
func (r *Registry) Prepare(room chat.RoomID, sub Subscriber) *Join {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := &Join{r: r, room: room, sub: sub}
	joins, ok := r.joins[room]
	if !ok {
		joins = make(map[string]*Join)
		r.joins[room] = joins
	}
	joins[sub.ID()] = j
	return j
}

// Commit moves the connection into the room, sends first and then every frame
// held since Prepare. On error the connection keeps its previous room unless
// the send itself failed, in which case it is in no room.
func (j *Join) Commit(first []byte) (prev chat.RoomID, had bool, err error) {
	r := j.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if j.done {
		return "", false, errors.New("join already resolved")
	}
	j.done = true
	r.forgetJoinLocked(j)
	if j.overflow {
		return "", false, ErrJoinOverflow
	}

	id := j.sub.ID()
	prev, had = r.where[id]
	if had {
		r.removeLocked(prev, id)
	}
	members, ok := r.rooms[j.room]
	if !ok {
		members = make(map[string]Subscriber)
		r.rooms[j.room] = members
	}
	members[id] = j.sub
	r.where[id] = j.room

	for _, f := range append([][]byte{first}, j.held...) {
		if err := j.sub.TrySend(f); err != nil {
			r.removeLocked(j.room, id)
			return prev, had, err
		}
	}
	j.held = nil
	return prev, had, nil
}

// Abort drops the join and its held frames. It is a no-op after Commit.
func (j *Join) Abort() {
	j.r.mu.Lock()
	defer j.r.mu.Unlock()
	if j.done {
		return
	}
	j.done = true
	j.r.forgetJoinLocked(j)
	j.held = nil
}

func (r *Registry) forgetJoinLocked(j *Join) {
	joins := r.joins[j.room]
	if joins[j.sub.ID()] == j {
		delete(joins, j.sub.ID())
	}
	if len(joins) == 0 {
		delete(r.joins, j.room)
	}
}

// holdLocked keeps frame for joins in flight to room. A connection that is
// already a member receives the frame live instead.
func (r *Registry) holdLocked(room chat.RoomID, frame []byte) {
	for id, j := range r.joins[room] {
		if r.where[id] == room || j.overflow {
			continue
		}
		if len(j.held) >= maxPending {
			j.overflow = true
			j.held = nil
			continue
		}
		j.held = append(j.held, frame)
	}
}
