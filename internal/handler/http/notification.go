package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collaborative-classroom/internal/hub"
	"collaborative-classroom/internal/service"
)

// NotificationHandler serves the REST side of the notification store. The
// live path is the websocket; these endpoints exist for clients catching up
// after reconnect.
type NotificationHandler struct {
	notificationService *service.NotificationService
	notificationHub     *hub.NotificationHub
}

func NewNotificationHandler(notificationService *service.NotificationService, notificationHub *hub.NotificationHub) *NotificationHandler {
	if notificationService == nil {
		panic("NotificationService cannot be nil for NotificationHandler")
	}
	if notificationHub == nil {
		panic("NotificationHub cannot be nil for NotificationHandler")
	}
	return &NotificationHandler{
		notificationService: notificationService,
		notificationHub:     notificationHub,
	}
}

// UnreadCount handles GET /api/notifications/unread_count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	count, err := h.notificationService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"count": count})
}

// MarkRead handles POST /api/notifications/:notificationId/read. The new
// unread count is returned and also pushed to the user's live connections.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	count, err := h.notificationService.MarkRead(c.Request.Context(), userID, c.Param("notificationId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.notificationHub.PushUnreadCount(userID, count)
	SuccessResponse(c, http.StatusOK, gin.H{"count": count})
}
