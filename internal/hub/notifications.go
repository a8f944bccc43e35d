package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/service"
)

// NotificationHub fans notification events out to each user's live
// connections. Delivery is best effort: a user with no open connection gets
// nothing here, the durable copy lives in the store.
type NotificationHub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	notificationService *service.NotificationService
	stateRepo           repository.StateRepository
}

func NewNotificationHub(notificationService *service.NotificationService, stateRepo repository.StateRepository) *NotificationHub {
	if notificationService == nil {
		panic("NotificationService cannot be nil for NotificationHub")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for NotificationHub")
	}
	return &NotificationHub{
		clients:             make(map[string]map[*Client]bool),
		notificationService: notificationService,
		stateRepo:           stateRepo,
	}
}

// Attach binds an upgraded connection and sends the initial unread count.
func (n *NotificationHub) Attach(client *Client) {
	n.mu.Lock()
	if _, ok := n.clients[client.userID]; !ok {
		n.clients[client.userID] = make(map[*Client]bool)
	}
	n.clients[client.userID][client] = true
	n.mu.Unlock()

	count, err := n.notificationService.CountUnread(context.Background(), client.userID)
	if err == nil {
		n.sendUnreadCount(client, count)
	}
	logrus.WithField("user_id", client.userID).Debug("Notification connection attached")
}

// HandleFrame implements Session. The only inbound type is mark_read.
func (n *NotificationHub) HandleFrame(c *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Send(marshalError("invalid message format"))
		return
	}
	if msg.Type != typeMarkRead {
		c.Send(marshalError("unknown message type: " + msg.Type))
		return
	}
	if msg.NotificationID == "" {
		c.Send(marshalError("missing notification_id"))
		return
	}

	count, err := n.notificationService.MarkRead(context.Background(), c.userID, msg.NotificationID)
	if err != nil {
		c.Send(marshalError("failed to mark notification read"))
		return
	}
	n.PushUnreadCount(c.userID, count)
}

// Detach implements Session.
func (n *NotificationHub) Detach(c *Client) {
	n.mu.Lock()
	if conns, ok := n.clients[c.userID]; ok {
		if conns[c] {
			delete(conns, c)
			c.CloseSend()
		}
		if len(conns) == 0 {
			delete(n.clients, c.userID)
		}
	}
	n.mu.Unlock()
	logrus.WithField("user_id", c.userID).Debug("Notification connection detached")
}

// Push delivers a notification to every connection the user holds.
func (n *NotificationHub) Push(notification domain.Notification) {
	payload, err := json.Marshal(struct {
		Type         string              `json:"type"`
		Notification domain.Notification `json:"notification"`
	}{Type: typeNotification, Notification: notification})
	if err != nil {
		logrus.WithField("notification_id", notification.ID).WithError(err).Error("Failed to marshal notification")
		return
	}

	// Sends stay under the read lock so a concurrent Detach cannot close
	// a channel mid-delivery.
	n.mu.RLock()
	for c := range n.clients[notification.UserID] {
		c.Send(payload)
	}
	n.mu.RUnlock()
}

// PushUnreadCount sends the user's current unread count to all of their
// connections.
func (n *NotificationHub) PushUnreadCount(userID string, count int64) {
	n.mu.RLock()
	for c := range n.clients[userID] {
		n.sendUnreadCount(c, count)
	}
	n.mu.RUnlock()
}

func (n *NotificationHub) sendUnreadCount(c *Client, count int64) {
	payload, err := json.Marshal(unreadCountPayload{Type: typeUnreadCount, Count: count})
	if err != nil {
		return
	}
	c.Send(payload)
}

// Run consumes the external notification feed until ctx is cancelled. Each
// event is relayed to the owning user along with a refreshed unread count.
func (n *NotificationHub) Run(ctx context.Context) error {
	stream, err := n.stateRepo.SubscribeNotifications(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	logCtx := logrus.WithField("component", "notification_hub")
	logCtx.Info("Notification feed subscribed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notification, ok := <-stream.Messages():
			if !ok {
				logCtx.Warn("Notification feed closed")
				return nil
			}
			n.Push(notification)
			count, err := n.notificationService.CountUnread(ctx, notification.UserID)
			if err != nil {
				continue
			}
			n.PushUnreadCount(notification.UserID, count)
		}
	}
}
