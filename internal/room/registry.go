// Package room tracks which connection listens to which room and fans out
// frames to them in publication order.
package room

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/log"
	"github.com/himalthapa1/EduConnect/internal/metrics"
)

// Subscriber is one connection's outbound queue. TrySend must not block; an
// error means the queue is full or closed.
type Subscriber interface {
	ID() string
	TrySend(frame []byte) error
}

// Delivery reports the outcome of a fan-out.
type Delivery struct {
	Sent    int
	Dropped int
}

func (d *Delivery) add(o Delivery) {
	d.Sent += o.Sent
	d.Dropped += o.Dropped
}

// Registry is the room membership table. A connection is subscribed to at
// most one room. All state sits behind one mutex; nothing under it blocks.
type Registry struct {
	mu    sync.Mutex
	rooms map[chat.RoomID]map[string]Subscriber
	where map[string]chat.RoomID
	seqs  map[chat.RoomID]*sequence
	joins map[chat.RoomID]map[string]*Join
	log   zerolog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[chat.RoomID]map[string]Subscriber),
		where: make(map[string]chat.RoomID),
		seqs:  make(map[chat.RoomID]*sequence),
		joins: make(map[chat.RoomID]map[string]*Join),
		log:   log.Module("room"),
	}
}

// Subscribe moves sub into room and returns the room it was in before.
func (r *Registry) Subscribe(room chat.RoomID, sub Subscriber) (prev chat.RoomID, had bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had = r.where[sub.ID()]
	if had {
		r.removeLocked(prev, sub.ID())
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Subscriber)
		r.rooms[room] = members
	}
	members[sub.ID()] = sub
	r.where[sub.ID()] = room
	return prev, had
}

// Unsubscribe removes connID from room. It is a no-op when connID is in a
// different room or none.
func (r *Registry) Unsubscribe(room chat.RoomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.where[connID]; !ok || cur != room {
		return false
	}
	r.removeLocked(room, connID)
	return true
}

// Leave removes connID from whatever room it is in.
func (r *Registry) Leave(connID string) (chat.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.where[connID]
	if ok {
		r.removeLocked(room, connID)
	}
	return room, ok
}

// Current returns the room connID is subscribed to.
func (r *Registry) Current(connID string) (chat.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.where[connID]
	return room, ok
}

// MembersOf returns the connection ids subscribed to room, sorted.
func (r *Registry) MembersOf(room chat.RoomID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Online is the advisory subscriber count of room.
func (r *Registry) Online(room chat.RoomID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[room])
}

// Broadcast delivers frame to the current members of room, after any frame
// whose ticket was reserved earlier.
func (r *Registry) Broadcast(room chat.RoomID, frame []byte) Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.reserveLocked(room)
	return r.resolveLocked(room, n, frame)
}

// removeLocked drops connID from room and forgets rooms nobody listens to.
func (r *Registry) removeLocked(room chat.RoomID, connID string) {
	delete(r.where, connID)
	members := r.rooms[room]
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// fanoutLocked enqueues frame on every member of room. Members whose queue
// rejects the frame are removed; their transport closes them.
func (r *Registry) fanoutLocked(room chat.RoomID, frame []byte) Delivery {
	r.holdLocked(room, frame)
	var d Delivery
	for id, sub := range r.rooms[room] {
		if err := sub.TrySend(frame); err != nil {
			r.removeLocked(room, id)
			d.Dropped++
			metrics.BroadcastDropped.Inc()
			r.log.Warn().Err(err).Str("conn_id", id).Str("room_id", string(room)).Msg("dropping slow subscriber")
			continue
		}
		d.Sent++
	}
	return d
}
