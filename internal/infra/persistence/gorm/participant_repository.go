package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// GormParticipantRepository is the GORM implementation of
// ParticipantRepository.
type GormParticipantRepository struct {
	db *gorm.DB
}

func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	if db == nil {
		panic("database connection cannot be nil for GormParticipantRepository")
	}
	return &GormParticipantRepository{db: db}
}

func (r *GormParticipantRepository) Find(ctx context.Context, roomID, userID string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("gorm: find participant (room %s, user %s): %w", roomID, userID, err)
	}
	return &p, nil
}

func (r *GormParticipantRepository) Save(ctx context.Context, p *domain.Participant) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save participant (room %s, user %s): %w", p.RoomID, p.UserID, err)
	}
	return nil
}

func (r *GormParticipantRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	var list []domain.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("invited_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list participants for room %s: %w", roomID, err)
	}
	return list, nil
}

func (r *GormParticipantRepository) CountJoined(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("room_id = ? AND status = ?", roomID, domain.ParticipantJoined).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count joined participants for room %s: %w", roomID, err)
	}
	return count, nil
}
