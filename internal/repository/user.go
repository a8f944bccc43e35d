package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// UserRepository is a read-only identity lookup (id -> display name). User
// records are owned by the platform's identity service.
type UserRepository interface {
	// FindByID returns the user, or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
