package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// ChatRepository persists room chat transcripts.
type ChatRepository interface {
	// SaveBatch appends a batch of chat messages to the transcript store.
	SaveBatch(ctx context.Context, msgs []domain.ChatMessage) error

	// ListByRoom returns up to limit most recent messages for a room,
	// oldest first.
	ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
}
