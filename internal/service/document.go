package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// DocumentService loads and persists the per-room code document. Edits are
// applied in memory by the room actor; this service only handles storage.
type DocumentService struct {
	documentRepo repository.DocumentRepository
}

func NewDocumentService(documentRepo repository.DocumentRepository) *DocumentService {
	if documentRepo == nil {
		panic("DocumentRepository cannot be nil for DocumentService")
	}
	return &DocumentService{documentRepo: documentRepo}
}

// Load fetches the room's document, creating an empty one in memory when
// none exists yet. The created document is not persisted until the first
// Persist call; rooms without edits leave no document row behind.
func (s *DocumentService) Load(ctx context.Context, roomID string) (*domain.CodeDocument, error) {
	doc, err := s.documentRepo.FindByRoom(ctx, roomID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, repository.ErrDocumentNotFound) {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load code document")
		return nil, ErrInternalServer
	}
	return &domain.CodeDocument{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Filename: "main",
		Version:  0,
	}, nil
}

// Persist writes the document snapshot back to storage.
func (s *DocumentService) Persist(ctx context.Context, doc *domain.CodeDocument) error {
	if err := s.documentRepo.Save(ctx, doc); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": doc.RoomID, "version": doc.Version}).
			WithError(err).Error("Failed to persist code document")
		return ErrInternalServer
	}
	return nil
}

// PersistEdits appends a batch of accepted edits to the audit log.
func (s *DocumentService) PersistEdits(ctx context.Context, edits []domain.EditRecord) error {
	if len(edits) == 0 {
		return nil
	}
	if err := s.documentRepo.SaveEdits(ctx, edits); err != nil {
		logrus.WithField("batch_size", len(edits)).WithError(err).Error("Failed to persist edit records")
		return ErrInternalServer
	}
	return nil
}
