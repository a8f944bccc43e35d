package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// NotificationRepository is the engine's view of the external notification
// store. The engine only relays live notifications and passes read receipts
// through.
type NotificationRepository interface {
	// FindByID returns a notification owned by userID, or
	// ErrNotificationNotFound (also when it exists but belongs to someone
	// else — ownership is not disclosed).
	FindByID(ctx context.Context, userID, notificationID string) (*domain.Notification, error)

	// Save creates or updates a notification record.
	Save(ctx context.Context, n *domain.Notification) error

	// CountUnread returns the number of unread notifications for a user.
	CountUnread(ctx context.Context, userID string) (int64, error)
}
