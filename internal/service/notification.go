package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// NotificationService reads and updates the per-user notification store.
// Delivery to live connections is the hub's job; durable creation belongs
// to the upstream platform.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	if notificationRepo == nil {
		panic("NotificationRepository cannot be nil for NotificationService")
	}
	return &NotificationService{notificationRepo: notificationRepo}
}

// MarkRead flips a notification owned by userID to read and returns the
// user's remaining unread count. Already-read notifications are a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (int64, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "notification_id": notificationID})

	n, err := s.notificationRepo.FindByID(ctx, userID, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			// Ownership is not disclosed: a foreign id reads the same as a
			// missing one, and the current count still goes back.
			return s.CountUnread(ctx, userID)
		}
		logCtx.WithError(err).Error("Failed to find notification")
		return 0, ErrInternalServer
	}

	if n.Status != domain.NotificationRead {
		now := time.Now()
		n.Status = domain.NotificationRead
		n.OpenedAt = &now
		if err := s.notificationRepo.Save(ctx, n); err != nil {
			logCtx.WithError(err).Error("Failed to mark notification read")
			return 0, ErrInternalServer
		}
	}
	return s.CountUnread(ctx, userID)
}

// CountUnread returns the user's unread notification count.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to count unread notifications")
		return 0, ErrInternalServer
	}
	return count, nil
}
