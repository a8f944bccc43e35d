package repository

import (
	"context"
	"time"

	"collaborative-classroom/internal/domain"
)

// NotificationStream is a live feed of notifications published by other
// services (payment, AI, collaboration invites). Close stops the feed.
type NotificationStream interface {
	Messages() <-chan domain.Notification
	Close() error
}

// StateRepository covers the engine's volatile cross-process state,
// implemented on Redis: presence counters, rate limiting and the inbound
// notification feed.
type StateRepository interface {
	// IncrementPresence atomically bumps a room's live-connection counter
	// and returns the new value.
	IncrementPresence(ctx context.Context, roomID string) (int64, error)

	// DecrementPresence atomically lowers a room's live-connection counter,
	// flooring at zero.
	DecrementPresence(ctx context.Context, roomID string) (int64, error)

	// GetPresence returns a room's current live-connection counter.
	GetPresence(ctx context.Context, roomID string) (int64, error)

	// CheckRateLimit increments the counter for key and reports whether the
	// caller exceeded limit within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// PublishNotification pushes a notification onto the shared feed.
	// Producing is normally done by other services; the engine uses it in
	// tooling and tests.
	PublishNotification(ctx context.Context, n domain.Notification) error

	// SubscribeNotifications opens the inbound notification feed.
	SubscribeNotifications(ctx context.Context) (NotificationStream, error)
}
