package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// ParticipantRepository defines storage of (room, user) membership records.
type ParticipantRepository interface {
	// Find returns the membership record for (roomID, userID), or
	// ErrParticipantNotFound.
	Find(ctx context.Context, roomID, userID string) (*domain.Participant, error)

	// Save creates or updates a membership record. The (room, user) unique
	// index guarantees at most one record per pair; a conflicting insert
	// returns ErrDuplicateEntry.
	Save(ctx context.Context, p *domain.Participant) error

	// ListByRoom returns all membership records for a room.
	ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error)

	// CountJoined returns the number of records in status joined for a room.
	CountJoined(ctx context.Context, roomID string) (int64, error)
}
