package domain

import "time"

// ChatMessage is one entry in a room's chat transcript. Messages are
// broadcast live by the hub and persisted as rows by a background worker.
type ChatMessage struct {
	ID       string    `gorm:"type:char(36);primaryKey" json:"id"`
	RoomID   string    `gorm:"type:char(36);index;not null" json:"room_id"`
	SenderID string    `gorm:"type:char(36);index;not null" json:"user_id"`
	Username string    `gorm:"size:150;not null" json:"username"`
	Body     string    `gorm:"type:text;not null" json:"message"`
	SentAt   time.Time `gorm:"index;not null" json:"timestamp"`
}
