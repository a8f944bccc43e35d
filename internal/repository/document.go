package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// DocumentRepository persists per-room code documents and their edit audit
// trail. The live document is owned by the room's hub actor; these writes
// happen asynchronously.
type DocumentRepository interface {
	// FindByRoom returns the document for a room, or ErrDocumentNotFound.
	FindByRoom(ctx context.Context, roomID string) (*domain.CodeDocument, error)

	// Save creates or updates a document row (text, version, history blob).
	Save(ctx context.Context, doc *domain.CodeDocument) error

	// SaveEdits appends a batch of edit audit records.
	SaveEdits(ctx context.Context, edits []domain.EditRecord) error
}
