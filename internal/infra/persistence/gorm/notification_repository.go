package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// GormNotificationRepository is the GORM implementation of
// NotificationRepository.
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormNotificationRepository")
	}
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) FindByID(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("gorm: find notification %s for user %s: %w", notificationID, userID, err)
	}
	return &n, nil
}

func (r *GormNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	if err := r.db.WithContext(ctx).Save(n).Error; err != nil {
		return fmt.Errorf("gorm: save notification (id: %s): %w", n.ID, err)
	}
	return nil
}

func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND status = ?", userID, domain.NotificationUnread).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count unread notifications for user %s: %w", userID, err)
	}
	return count, nil
}
