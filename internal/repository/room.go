package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// RoomRepository defines storage and retrieval of collaboration rooms.
type RoomRepository interface {
	// FindByID looks a room up by id. Returns ErrRoomNotFound when absent.
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// Save creates the room when new (by id) and updates it otherwise.
	Save(ctx context.Context, room *domain.Room) error

	// Create inserts a new room and returns ErrDuplicateEntry when the id
	// already exists. Used by the idempotent create-or-get path, which must
	// distinguish "already there" from other failures.
	Create(ctx context.Context, room *domain.Room) error
}
