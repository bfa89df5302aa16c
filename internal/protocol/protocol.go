package protocol

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/log"
	"github.com/himalthapa1/EduConnect/internal/metrics"
	"github.com/himalthapa1/EduConnect/internal/room"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

// Conn is the connection a session talks back to.
type Conn = room.Subscriber

type Verifier interface {
	Verify(ctx context.Context, token string) (uint, error)
}

// Store reads the backlog delivered on join.
type Store interface {
	Recent(ctx context.Context, t chat.Target, limit int) ([]chat.Message, error)
}

type Profiles interface {
	Profiles(ctx context.Context, ids []uint) (map[uint]chat.Profile, error)
}

// Messages performs the send, vote and delete use cases, broadcasting their
// results itself.
type Messages interface {
	Send(ctx context.Context, userID uint, t chat.Target, p chat.Payload) (wire.MessageView, error)
	Vote(ctx context.Context, userID, messageID uint, optionIndex int) (chat.PollResults, error)
	Delete(ctx context.Context, userID, messageID uint) error
}

type Deps struct {
	Verifier     Verifier
	Membership   chat.Membership
	Store        Store
	Profiles     Profiles
	Rooms        *room.Registry
	Messages     Messages
	BacklogLimit int
	OpTimeout    time.Duration
}

type Protocol struct {
	Deps
	log zerolog.Logger
}

func New(d Deps) *Protocol {
	if d.BacklogLimit <= 0 {
		d.BacklogLimit = 50
	}
	if d.OpTimeout <= 0 {
		d.OpTimeout = 5 * time.Second
	}
	return &Protocol{Deps: d, log: log.Module("protocol")}
}

// Connect authenticates a new connection. On failure one error frame is
// queued on conn and the returned session is Closed; the caller closes the
// transport after flushing.
func (p *Protocol) Connect(ctx context.Context, conn Conn, token string) Session {
	s := Session{ConnID: conn.ID(), State: Unauthenticated}
	ctx, cancel := context.WithTimeout(ctx, p.OpTimeout)
	defer cancel()

	userID, err := p.Verifier.Verify(ctx, token)
	if err != nil {
		p.reject(conn, s, "connect", err)
		s.State = Closed
		return s
	}
	s.UserID = userID
	s.State = Authenticated
	p.log.Debug().Str("conn_id", s.ConnID).Uint("user_id", userID).Msg("connection authenticated")
	return s
}

// Handle applies cmd to s and returns the next state. Failures are reported
// to conn only and leave s unchanged.
func (p *Protocol) Handle(ctx context.Context, s Session, conn Conn, cmd Command) Session {
	if s.State == Closed {
		return s
	}
	if _, ok := cmd.(Disconnect); ok {
		return p.disconnect(s)
	}
	if !s.authenticated() {
		p.reject(conn, s, cmd.event(), errAuthRequired)
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, p.OpTimeout)
	defer cancel()

	switch c := cmd.(type) {
	case JoinRoom:
		return p.join(ctx, s, conn, c)
	case SendMessage:
		p.send(ctx, s, conn, c)
	case LeaveRoom:
		return p.leave(s, c)
	case VotePoll:
		if _, err := p.Messages.Vote(ctx, s.UserID, c.MessageID, c.OptionIndex); err != nil {
			p.reject(conn, s, c.event(), err)
		}
	case DeleteMessage:
		if err := p.Messages.Delete(ctx, s.UserID, c.MessageID); err != nil {
			p.reject(conn, s, c.event(), err)
		}
	case Invalid:
		p.reject(conn, s, c.Event, c.Err)
	}
	return s
}

func (p *Protocol) join(ctx context.Context, s Session, conn Conn, c JoinRoom) Session {
	if err := chat.Authorize(ctx, p.Membership, c.Target, s.UserID); err != nil {
		p.reject(conn, s, c.event(), err)
		return s
	}

	// The connection stays in its current room until Commit. Frames sent to
	// the new room meanwhile are held and follow room-joined; a message can
	// then be both in the backlog and held, clients dedupe by _id.
	roomID := c.Target.Room()
	j := p.Rooms.Prepare(roomID, conn)
	defer j.Abort()

	backlog, err := p.Store.Recent(ctx, c.Target, p.BacklogLimit)
	if err != nil {
		p.reject(conn, s, c.event(), err)
		return s
	}
	profiles, err := p.Profiles.Profiles(ctx, wire.SenderIDs(backlog))
	if err != nil {
		p.reject(conn, s, c.event(), err)
		return s
	}
	frame, err := wire.Encode(wire.EventRoomJoined, wire.RoomJoinedData{
		RoomID:   roomID,
		Messages: wire.NewMessageViews(backlog, profiles),
	})
	if err != nil {
		p.reject(conn, s, c.event(), err)
		return s
	}
	if _, _, err := j.Commit(frame); err != nil {
		if errors.Is(err, room.ErrJoinOverflow) {
			p.reject(conn, s, c.event(), err)
			return s
		}
		// The connection's queue refused the frame; the transport is closing it.
		p.log.Warn().Err(err).Str("conn_id", s.ConnID).Msg("room-joined not delivered")
		if s.State == InRoom {
			s.State = Authenticated
			s.Target = chat.Target{}
		}
		return s
	}

	p.log.Info().Str("conn_id", s.ConnID).Uint("user_id", s.UserID).Str("room_id", string(roomID)).Int("backlog", len(backlog)).Msg("joined room")
	s.State = InRoom
	s.Target = c.Target
	return s
}

func (p *Protocol) send(ctx context.Context, s Session, conn Conn, c SendMessage) {
	msg, err := p.Messages.Send(ctx, s.UserID, c.Target, c.Payload)
	if err != nil {
		p.reject(conn, s, c.event(), err)
		return
	}
	p.log.Debug().Str("conn_id", s.ConnID).Uint("user_id", s.UserID).Uint("message_id", msg.ID).Msg("message sent")
}

func (p *Protocol) leave(s Session, c LeaveRoom) Session {
	if s.State != InRoom || s.Target != c.Target {
		return s
	}
	p.Rooms.Unsubscribe(c.Target.Room(), s.ConnID)
	s.State = Authenticated
	s.Target = chat.Target{}
	return s
}

func (p *Protocol) disconnect(s Session) Session {
	if room, ok := p.Rooms.Leave(s.ConnID); ok {
		p.log.Debug().Str("conn_id", s.ConnID).Str("room_id", string(room)).Msg("left room on disconnect")
	}
	s.State = Closed
	s.Target = chat.Target{}
	return s
}

// reject reports err to the initiating connection only.
func (p *Protocol) reject(conn Conn, s Session, event string, err error) {
	kind, message := classify(event, err)
	metrics.ProtocolErrors.WithLabelValues(kind).Inc()
	ev := p.log.Warn()
	if kind == kindInternal {
		ev = p.log.Error()
	}
	ev.Err(err).Str("conn_id", s.ConnID).Uint("user_id", s.UserID).Str("event", event).Msg(message)
	if sendErr := conn.TrySend(wire.ErrorFrame(message)); sendErr != nil {
		p.log.Warn().Err(sendErr).Str("conn_id", s.ConnID).Msg("error frame not delivered")
	}
}
