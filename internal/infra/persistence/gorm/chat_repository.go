package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collaborative-classroom/internal/domain"
)

// GormChatRepository is the GORM implementation of ChatRepository.
type GormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) SaveBatch(ctx context.Context, msgs []domain.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&msgs).Error; err != nil {
		return fmt.Errorf("gorm: save chat batch (size %d): %w", len(msgs), err)
	}
	return nil
}

func (r *GormChatRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []domain.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list chat for room %s: %w", roomID, err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
