// Package models holds the gorm persistence models. Users, groups and
// sessions are owned by the directory; this service only reads them.
package models

import "time"

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StudyGroup 的创建者即管理员。
type StudyGroup struct {
	ID        uint          `gorm:"primaryKey"`
	Name      string        `gorm:"size:128;not null"`
	CreatorID uint          `gorm:"index;not null"`
	Members   []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GroupMember struct {
	GroupID   uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

type StudySession struct {
	ID           uint                 `gorm:"primaryKey"`
	Title        string               `gorm:"size:128;not null"`
	OrganizerID  uint                 `gorm:"index;not null"`
	Participants []SessionParticipant `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SessionParticipant struct {
	SessionID uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

// Message 恰好设置 GroupID 与 SessionID 之一。
type Message struct {
	ID          uint         `gorm:"primaryKey"`
	GroupID     *uint        `gorm:"index:idx_msg_group_created,priority:1"`
	SessionID   *uint        `gorm:"index:idx_msg_session_created,priority:1"`
	SenderID    uint         `gorm:"index;not null"`
	Type        string       `gorm:"size:16;not null"`
	Content     string       `gorm:"type:text;not null"`
	AudioRef    string       `gorm:"size:255;index"`
	PollOptions []PollOption `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	PollVotes   []PollVote   `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"index:idx_msg_group_created,priority:2;index:idx_msg_session_created,priority:2"`
}

type PollOption struct {
	ID        uint   `gorm:"primaryKey"`
	MessageID uint   `gorm:"uniqueIndex:idx_poll_option_pos;not null"`
	Position  int    `gorm:"uniqueIndex:idx_poll_option_pos;not null"`
	Text      string `gorm:"size:100;not null"`
}

// PollVote 每个用户在一个投票中至多一条记录，ID 顺序即投票顺序。
type PollVote struct {
	ID          uint `gorm:"primaryKey"`
	MessageID   uint `gorm:"uniqueIndex:idx_poll_vote_user;not null"`
	UserID      uint `gorm:"uniqueIndex:idx_poll_vote_user;not null"`
	OptionIndex int  `gorm:"not null"`
	CreatedAt   time.Time
}
