package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// GormTutorSessionRepository is the GORM implementation of
// TutorSessionRepository.
type GormTutorSessionRepository struct {
	db *gorm.DB
}

func NewGormTutorSessionRepository(db *gorm.DB) *GormTutorSessionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormTutorSessionRepository")
	}
	return &GormTutorSessionRepository{db: db}
}

func (r *GormTutorSessionRepository) FindByID(ctx context.Context, id string) (*domain.TutorSession, error) {
	var s domain.TutorSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find tutor session by id %s: %w", id, err)
	}
	return &s, nil
}

func (r *GormTutorSessionRepository) Save(ctx context.Context, s *domain.TutorSession) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("gorm: save tutor session (id: %s): %w", s.ID, err)
	}
	return nil
}
