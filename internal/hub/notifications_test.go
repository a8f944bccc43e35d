package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

func newNotificationFixture(t *testing.T) (*NotificationHub, *mocks.NotificationRepository) {
	t.Helper()
	repo := new(mocks.NotificationRepository)
	svc := service.NewNotificationService(repo)
	return NewNotificationHub(svc, new(mocks.StateRepository)), repo
}

func notifyClient(n *NotificationHub, userID string) *Client {
	return NewClient(nil, n, "", userID, userID, "", ChannelNotifications)
}

func TestNotificationHub_AttachSendsInitialUnreadCount(t *testing.T) {
	n, repo := newNotificationFixture(t)
	repo.On("CountUnread", mock.Anything, "user-a").Return(int64(3), nil).Once()

	c := notifyClient(n, "user-a")
	n.Attach(c)

	frame := decode(t, recv(c))
	assert.Equal(t, "unread_count_update", frame["type"])
	assert.Equal(t, float64(3), frame["count"])
}

func TestNotificationHub_PushReachesOwnerOnly(t *testing.T) {
	n, repo := newNotificationFixture(t)
	repo.On("CountUnread", mock.Anything, mock.Anything).Return(int64(0), nil)

	owner := notifyClient(n, "user-a")
	ownerPhone := notifyClient(n, "user-a")
	other := notifyClient(n, "user-b")
	n.Attach(owner)
	n.Attach(ownerPhone)
	n.Attach(other)
	for _, c := range []*Client{owner, ownerPhone, other} {
		recv(c) // drain the initial count
	}

	n.Push(domain.Notification{ID: "n-1", UserID: "user-a", Category: "achievement"})

	for _, c := range []*Client{owner, ownerPhone} {
		frame := decode(t, recv(c))
		assert.Equal(t, "notification", frame["type"])
	}
	assert.Nil(t, recv(other))
}

func TestNotificationHub_MarkReadRepliesWithUpdatedCount(t *testing.T) {
	n, repo := newNotificationFixture(t)
	repo.On("CountUnread", mock.Anything, "user-a").Return(int64(5), nil).Once()

	c := notifyClient(n, "user-a")
	n.Attach(c)
	recv(c)

	unread := &domain.Notification{ID: "n-1", UserID: "user-a", Status: domain.NotificationUnread}
	repo.On("FindByID", mock.Anything, "user-a", "n-1").Return(unread, nil).Once()
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil).Once()
	repo.On("CountUnread", mock.Anything, "user-a").Return(int64(4), nil).Once()

	n.HandleFrame(c, []byte(`{"type":"mark_read","notification_id":"n-1"}`))

	frame := decode(t, recv(c))
	assert.Equal(t, "unread_count_update", frame["type"])
	assert.Equal(t, float64(4), frame["count"])
}

func TestNotificationHub_UnknownTypeGetsErrorReply(t *testing.T) {
	n, repo := newNotificationFixture(t)
	repo.On("CountUnread", mock.Anything, "user-a").Return(int64(0), nil).Once()

	c := notifyClient(n, "user-a")
	n.Attach(c)
	recv(c)

	n.HandleFrame(c, []byte(`{"type":"chat_message","message":"hi"}`))

	frame := decode(t, recv(c))
	assert.Equal(t, "error", frame["type"])
}

func TestNotificationHub_DetachRemovesConnection(t *testing.T) {
	n, repo := newNotificationFixture(t)
	repo.On("CountUnread", mock.Anything, "user-a").Return(int64(0), nil).Once()

	c := notifyClient(n, "user-a")
	n.Attach(c)
	recv(c)
	n.Detach(c)

	// No live connections left: push is a silent no-op.
	n.Push(domain.Notification{ID: "n-1", UserID: "user-a"})
	n.mu.RLock()
	_, ok := n.clients["user-a"]
	n.mu.RUnlock()
	assert.False(t, ok)
}
