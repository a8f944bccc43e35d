package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

func TestNotificationService_MarkRead_FlipsStatus(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	svc := service.NewNotificationService(repo)
	ctx := context.Background()

	unread := &domain.Notification{ID: "n-1", UserID: "user-a", Status: domain.NotificationUnread}
	repo.On("FindByID", ctx, "user-a", "n-1").Return(unread, nil).Once()
	repo.On("Save", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Status == domain.NotificationRead && n.OpenedAt != nil
	})).Return(nil).Once()
	repo.On("CountUnread", ctx, "user-a").Return(int64(4), nil).Once()

	count, err := svc.MarkRead(ctx, "user-a", "n-1")

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	repo.AssertExpectations(t)
}

func TestNotificationService_MarkRead_ForeignIDNotDisclosed(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	svc := service.NewNotificationService(repo)
	ctx := context.Background()

	// Someone else's notification reads the same as a missing one: no
	// error, just the caller's current count.
	repo.On("FindByID", ctx, "user-a", "foreign").
		Return(nil, repository.ErrNotificationNotFound).Once()
	repo.On("CountUnread", ctx, "user-a").Return(int64(2), nil).Once()

	count, err := svc.MarkRead(ctx, "user-a", "foreign")

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestNotificationService_MarkRead_AlreadyReadIsNoOp(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	svc := service.NewNotificationService(repo)
	ctx := context.Background()

	read := &domain.Notification{ID: "n-1", UserID: "user-a", Status: domain.NotificationRead}
	repo.On("FindByID", ctx, "user-a", "n-1").Return(read, nil).Once()
	repo.On("CountUnread", ctx, "user-a").Return(int64(0), nil).Once()

	count, err := svc.MarkRead(ctx, "user-a", "n-1")

	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
