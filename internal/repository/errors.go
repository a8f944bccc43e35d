package repository

import "errors"

// Generic repository errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates a write violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Resource-specific aliases, kept so callers can express intent.
var (
	ErrRoomNotFound         = ErrNotFound
	ErrParticipantNotFound  = ErrNotFound
	ErrDocumentNotFound     = ErrNotFound
	ErrUserNotFound         = ErrNotFound
	ErrNotificationNotFound = ErrNotFound
	ErrSessionNotFound      = ErrNotFound
)
