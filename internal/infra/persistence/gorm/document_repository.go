package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// GormDocumentRepository is the GORM implementation of DocumentRepository.
type GormDocumentRepository struct {
	db *gorm.DB
}

func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	if db == nil {
		panic("database connection cannot be nil for GormDocumentRepository")
	}
	return &GormDocumentRepository{db: db}
}

func (r *GormDocumentRepository) FindByRoom(ctx context.Context, roomID string) (*domain.CodeDocument, error) {
	var doc domain.CodeDocument
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("gorm: find document for room %s: %w", roomID, err)
	}
	if err := doc.DecodeHistory(); err != nil {
		return nil, fmt.Errorf("gorm: decode history for room %s: %w", roomID, err)
	}
	return &doc, nil
}

func (r *GormDocumentRepository) Save(ctx context.Context, doc *domain.CodeDocument) error {
	if err := doc.EncodeHistory(); err != nil {
		return fmt.Errorf("gorm: encode history for room %s: %w", doc.RoomID, err)
	}
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save document (room %s, version %d): %w", doc.RoomID, doc.Version, err)
	}
	return nil
}

func (r *GormDocumentRepository) SaveEdits(ctx context.Context, edits []domain.EditRecord) error {
	if len(edits) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&edits).Error; err != nil {
		return fmt.Errorf("gorm: save edit batch (size %d): %w", len(edits), err)
	}
	return nil
}
