package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/himalthapa1/EduConnect/internal/blob"
	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/log"
	"github.com/himalthapa1/EduConnect/internal/metrics"
	"github.com/himalthapa1/EduConnect/internal/poll"
	"github.com/himalthapa1/EduConnect/internal/room"
	"github.com/himalthapa1/EduConnect/internal/store"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

type MessageStore interface {
	Append(ctx context.Context, d chat.Draft) (chat.Message, error)
	Get(ctx context.Context, id uint) (chat.Message, error)
	Delete(ctx context.Context, id uint) error
	Page(ctx context.Context, t chat.Target, q store.Query) (store.Page, error)
	AudioRefInUse(ctx context.Context, ref string) (bool, error)
}

// Directory is the membership oracle plus the moderator check.
type Directory interface {
	chat.Membership
	CanModerate(ctx context.Context, t chat.Target, userID uint) (bool, error)
}

type Profiles interface {
	Profile(ctx context.Context, userID uint) (chat.Profile, error)
	Profiles(ctx context.Context, ids []uint) (map[uint]chat.Profile, error)
}

type Broadcaster interface {
	Reserve(roomID chat.RoomID) *room.Ticket
	Broadcast(roomID chat.RoomID, frame []byte) room.Delivery
}

// MessageService 封装发送、历史消息、投票与删除的业务逻辑，REST 与 WebSocket 共用。
type MessageService struct {
	store    MessageStore
	polls    *poll.Engine
	dir      Directory
	profiles Profiles
	rooms    Broadcaster
	blobs    blob.Store
	log      zerolog.Logger
}

func NewMessageService(st MessageStore, polls *poll.Engine, dir Directory, profiles Profiles, rooms Broadcaster, blobs blob.Store) *MessageService {
	return &MessageService{
		store:    st,
		polls:    polls,
		dir:      dir,
		profiles: profiles,
		rooms:    rooms,
		blobs:    blobs,
		log:      log.Module("messages"),
	}
}

// Send 校验并持久化一条消息，再按预留顺序向房间广播 new-message。
// 每次发送都重新校验成员身份。
func (s *MessageService) Send(ctx context.Context, userID uint, t chat.Target, p chat.Payload) (wire.MessageView, error) {
	payload, err := chat.Normalize(p)
	if err != nil {
		return wire.MessageView{}, err
	}
	if err := chat.Authorize(ctx, s.dir, t, userID); err != nil {
		return wire.MessageView{}, err
	}
	if voice, ok := payload.(chat.Voice); ok {
		if payload, err = s.attachAudio(ctx, voice); err != nil {
			return wire.MessageView{}, err
		}
	}
	sender, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return wire.MessageView{}, err
	}

	ticket := s.rooms.Reserve(t.Room())
	defer ticket.Cancel()

	msg, err := s.store.Append(ctx, chat.Draft{Target: t, SenderID: userID, Payload: payload})
	if err != nil {
		return wire.MessageView{}, err
	}
	metrics.MessagesTotal.WithLabelValues(string(msg.Type())).Inc()

	view := wire.NewMessageView(msg, sender)
	frame, err := wire.Encode(wire.EventNewMessage, view)
	if err != nil {
		return wire.MessageView{}, fmt.Errorf("encode message: %w", err)
	}
	d := ticket.Publish(frame)
	s.log.Debug().Uint("user_id", userID).Uint("message_id", msg.ID).Str("room_id", string(t.Room())).
		Int("sent", d.Sent).Int("dropped", d.Dropped).Msg("message broadcast")
	return view, nil
}

// attachAudio 把音频引用规范为对象名，并要求对象已上传且未被其他消息引用。
func (s *MessageService) attachAudio(ctx context.Context, v chat.Voice) (chat.Payload, error) {
	name, err := blob.Name(v.AudioRef)
	if err != nil {
		return nil, &chat.ValidationError{Reason: "invalid audio reference"}
	}
	ok, err := s.blobs.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &chat.ValidationError{Reason: "audio file not found"}
	}
	return chat.Voice{AudioRef: name, Caption: v.Caption}, nil
}

// Pagination 描述一页历史消息的位置。
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

type HistoryPage struct {
	RoomID     chat.RoomID        `json:"roomId"`
	Messages   []wire.MessageView `json:"messages"`
	Pagination Pagination         `json:"pagination"`
}

// History 分页查询房间历史消息，仅成员可见。
func (s *MessageService) History(ctx context.Context, userID uint, t chat.Target, q store.Query) (*HistoryPage, error) {
	if err := chat.Authorize(ctx, s.dir, t, userID); err != nil {
		return nil, err
	}
	page, err := s.store.Page(ctx, t, q)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profiles.Profiles(ctx, wire.SenderIDs(page.Messages))
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		RoomID:   t.Room(),
		Messages: wire.NewMessageViews(page.Messages, profiles),
		Pagination: Pagination{
			Page:    page.Page,
			Limit:   page.Limit,
			Total:   page.Total,
			HasMore: page.HasMore,
		},
	}, nil
}

// PollResults 返回投票结果，仅房间成员可见。
func (s *MessageService) PollResults(ctx context.Context, userID, messageID uint) (chat.PollResults, chat.Target, error) {
	res, target, err := s.polls.Results(ctx, messageID)
	if err != nil {
		return chat.PollResults{}, chat.Target{}, err
	}
	if err := chat.Authorize(ctx, s.dir, target, userID); err != nil {
		return chat.PollResults{}, chat.Target{}, err
	}
	return res, target, nil
}

// Vote 记录投票并向房间广播最新结果。
func (s *MessageService) Vote(ctx context.Context, userID, messageID uint, optionIndex int) (chat.PollResults, error) {
	if _, _, err := s.PollResults(ctx, userID, messageID); err != nil {
		return chat.PollResults{}, err
	}
	res, target, err := s.polls.Vote(ctx, messageID, userID, optionIndex)
	if err != nil {
		return chat.PollResults{}, err
	}
	frame, err := wire.Encode(wire.EventPollUpdated, wire.PollUpdatedData{
		MessageID: messageID,
		RoomID:    target.Room(),
		Results:   wire.NewPollView(res),
	})
	if err != nil {
		return chat.PollResults{}, err
	}
	s.rooms.Broadcast(target.Room(), frame)
	return res, nil
}

// Delete 删除消息，仅发送者或房间管理员（群组创建者、会话组织者）可操作。
func (s *MessageService) Delete(ctx context.Context, userID, messageID uint) error {
	m, err := s.store.Get(ctx, messageID)
	if err != nil {
		return err
	}
	moderator := false
	if m.SenderID != userID {
		moderator, err = s.dir.CanModerate(ctx, m.Target, userID)
		if err != nil {
			return err
		}
	}
	if !m.CanDelete(userID, moderator) {
		return ErrDeleteForbidden
	}
	if err := s.store.Delete(ctx, messageID); err != nil {
		return err
	}
	if voice, ok := m.Payload.(chat.Voice); ok {
		s.releaseAudio(ctx, messageID, voice.AudioRef)
	}

	frame, err := wire.Encode(wire.EventMessageDeleted, wire.MessageDeletedData{MessageID: messageID, RoomID: m.Target.Room()})
	if err != nil {
		return fmt.Errorf("encode deletion: %w", err)
	}
	s.rooms.Broadcast(m.Target.Room(), frame)
	s.log.Info().Uint("message_id", messageID).Uint("user_id", userID).Bool("moderator", moderator).Msg("message deleted")
	return nil
}

// releaseAudio 删除已无消息引用的音频。失败只记录日志，消息已删除。
func (s *MessageService) releaseAudio(ctx context.Context, messageID uint, ref string) {
	logger := s.log.With().Uint("message_id", messageID).Str("audio_ref", ref).Logger()
	inUse, err := s.store.AudioRefInUse(ctx, ref)
	if err != nil {
		logger.Error().Err(err).Msg("check voice blob references")
		return
	}
	if inUse {
		logger.Warn().Msg("voice blob still referenced, keeping it")
		return
	}
	if err := s.blobs.Remove(ctx, ref); err != nil {
		logger.Error().Err(err).Msg("remove voice blob")
	}
}
