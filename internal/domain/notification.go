package domain

import "time"

// NotificationStatus tracks whether the user has opened a notification.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// Notification is a system message addressed to a single user. The engine
// only relays notifications to live connections; durable delivery (email,
// push) is an external path.
type Notification struct {
	ID       string             `gorm:"type:char(36);primaryKey" json:"id"`
	UserID   string             `gorm:"type:char(36);index;not null" json:"user_id"`
	Category string             `gorm:"size:50;not null" json:"category"`
	// Payload is the JSON body produced by the originating service
	// (payment, AI, collaboration invite); the engine treats it as opaque.
	Payload string             `gorm:"type:text;not null" json:"payload"`
	Status  NotificationStatus `gorm:"size:20;not null;index" json:"status"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
}
