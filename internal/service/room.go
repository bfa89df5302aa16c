package service

import (
	"context"

	"github.com/himalthapa1/EduConnect/internal/chat"
)

type Presence interface {
	Online(roomID chat.RoomID) int
}

// RoomService 提供房间在线人数等只读信息。
type RoomService struct {
	dir      chat.Membership
	presence Presence
}

func NewRoomService(dir chat.Membership, presence Presence) *RoomService {
	return &RoomService{dir: dir, presence: presence}
}

// RoomDTO 是对外输出的房间数据。
type RoomDTO struct {
	RoomID chat.RoomID `json:"roomId"`
	Online int         `json:"online"`
}

// Online 返回房间当前的订阅连接数，仅成员可查询。该数字只作参考。
func (s *RoomService) Online(ctx context.Context, userID uint, t chat.Target) (*RoomDTO, error) {
	if err := chat.Authorize(ctx, s.dir, t, userID); err != nil {
		return nil, err
	}
	return &RoomDTO{RoomID: t.Room(), Online: s.presence.Online(t.Room())}, nil
}
