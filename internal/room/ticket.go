package room

import "github.com/himalthapa1/EduConnect/internal/chat"

// sequence orders the frames of one room. Tickets are numbered from next;
// head is the oldest ticket not yet resolved.
type sequence struct {
	next  uint64
	head  uint64
	ready map[uint64][]byte
}

// Ticket is a reserved slot in a room's delivery order. Take one before
// persisting a message and resolve it with Publish or Cancel; frames are
// released in ticket order, so an unresolved ticket holds back later ones.
type Ticket struct {
	r    *Registry
	room chat.RoomID
	n    uint64
	done bool
}

// Reserve takes the next slot in room's delivery order.
func (r *Registry) Reserve(room chat.RoomID) *Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Ticket{r: r, room: room, n: r.reserveLocked(room)}
}

// Publish resolves the ticket with frame. The returned delivery covers every
// frame released by this call, which may include frames of later tickets.
func (t *Ticket) Publish(frame []byte) Delivery {
	return t.resolve(frame)
}

// Cancel resolves the ticket without a frame. It is a no-op after Publish.
func (t *Ticket) Cancel() {
	t.resolve(nil)
}

func (t *Ticket) resolve(frame []byte) Delivery {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if t.done {
		return Delivery{}
	}
	t.done = true
	return t.r.resolveLocked(t.room, t.n, frame)
}

func (r *Registry) reserveLocked(room chat.RoomID) uint64 {
	seq, ok := r.seqs[room]
	if !ok {
		seq = &sequence{ready: make(map[uint64][]byte)}
		r.seqs[room] = seq
	}
	n := seq.next
	seq.next++
	return n
}

// resolveLocked records ticket n and flushes every consecutive resolved
// ticket from head. A nil frame marks a cancelled ticket.
func (r *Registry) resolveLocked(room chat.RoomID, n uint64, frame []byte) Delivery {
	seq := r.seqs[room]
	if seq == nil {
		return Delivery{}
	}
	seq.ready[n] = frame
	var d Delivery
	for {
		f, ok := seq.ready[seq.head]
		if !ok {
			break
		}
		delete(seq.ready, seq.head)
		seq.head++
		if f != nil {
			d.add(r.fanoutLocked(room, f))
		}
	}
	if seq.head == seq.next {
		delete(r.seqs, room)
	}
	return d
}
