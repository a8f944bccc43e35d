// Package websocket exposes the upgrade endpoints. Authorization happens
// before the upgrade: a connection that fails a permission check is refused
// with an HTTP status and leaves no state behind.
package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/hub"
	"collaborative-classroom/internal/middleware"
	"collaborative-classroom/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The browser client is served from another origin; tokens carry the
	// trust, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler wires the four websocket surfaces: room, code, tutor and
// notifications.
type Handler struct {
	hub             *hub.Hub
	notificationHub *hub.NotificationHub
	roomService     *service.RoomService
	tutorService    *service.TutorService
}

func NewHandler(
	h *hub.Hub,
	notificationHub *hub.NotificationHub,
	roomService *service.RoomService,
	tutorService *service.TutorService,
) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	if notificationHub == nil {
		panic("NotificationHub cannot be nil for websocket Handler")
	}
	if roomService == nil {
		panic("RoomService cannot be nil for websocket Handler")
	}
	if tutorService == nil {
		panic("TutorService cannot be nil for websocket Handler")
	}
	return &Handler{
		hub:             h,
		notificationHub: notificationHub,
		roomService:     roomService,
		tutorService:    tutorService,
	}
}

type identity struct {
	userID   string
	username string
	fullName string
}

func callerIdentity(c *gin.Context) (identity, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		return identity{}, false
	}
	return identity{
		userID:   userID,
		username: c.GetString(middleware.ContextUsername),
		fullName: c.GetString(middleware.ContextFullName),
	}, true
}

// resolveIdentity backfills display fields when the token carries only a
// user id. Older tokens issued before the claim set grew still work.
func (h *Handler) resolveIdentity(c *gin.Context, caller *identity) {
	if caller.username != "" {
		return
	}
	caller.username, caller.fullName = h.roomService.UserInfo(c.Request.Context(), caller.userID)
}

// HandleRoom serves GET /ws/rooms/:roomId. The participant record is
// created or revived only once the socket is open.
func (h *Handler) HandleRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	caller, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	h.resolveIdentity(c, &caller)
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": caller.userID})

	if err := h.roomService.CheckJoinPermission(c.Request.Context(), roomID, caller.userID); err != nil {
		logCtx.WithError(err).Warn("Room websocket refused")
		c.JSON(joinStatus(err), gin.H{"error": err.Error()})
		return
	}

	// The handshake completes before any membership state is written: a
	// request that never becomes a websocket must not leave a joined
	// participant or an activated room behind.
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	role := domain.RoleParticipant
	if room, err := h.roomService.GetRoom(c.Request.Context(), roomID); err == nil && room.HostID == caller.userID {
		role = domain.RoleHost
	}
	participant, err := h.roomService.AddParticipant(c.Request.Context(), roomID, caller.userID, role)
	if err != nil {
		logCtx.WithError(err).Error("Failed to add participant")
		conn.Close()
		return
	}
	client := h.hub.Attach(conn, roomID, caller.userID, caller.username, caller.fullName, hub.ChannelRoom, participant.CanEditCode)
	go client.Run()
}

// HandleCode serves GET /ws/code/:roomId. The code channel reads membership
// but never creates it: a user with no participant record connects as an
// observer.
func (h *Handler) HandleCode(c *gin.Context) {
	roomID := c.Param("roomId")
	caller, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	h.resolveIdentity(c, &caller)
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": caller.userID})

	if err := h.roomService.CheckJoinPermission(c.Request.Context(), roomID, caller.userID); err != nil {
		logCtx.WithError(err).Warn("Code websocket refused")
		c.JSON(joinStatus(err), gin.H{"error": err.Error()})
		return
	}

	canEdit := false
	participant, err := h.roomService.GetParticipant(c.Request.Context(), roomID, caller.userID)
	if err == nil {
		canEdit = participant.CanEditCode
	} else if !errors.Is(err, service.ErrParticipantNotFound) {
		logCtx.WithError(err).Error("Failed to resolve code capability")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join code channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	client := h.hub.Attach(conn, roomID, caller.userID, caller.username, caller.fullName, hub.ChannelCode, canEdit)
	go client.Run()
}

// HandleTutor serves GET /ws/ai/:sessionId. The session must belong to the
// caller and still be active.
func (h *Handler) HandleTutor(c *gin.Context) {
	sessionID := c.Param("sessionId")
	caller, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "user_id": caller.userID})

	if _, err := h.tutorService.VerifySession(c.Request.Context(), sessionID, caller.userID); err != nil {
		logCtx.WithError(err).Warn("Tutor websocket refused")
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrSessionClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open tutor session"})
		}
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	session := hub.NewTutorSession(sessionID, h.tutorService)
	client := hub.NewClient(conn, session, "", caller.userID, caller.username, caller.fullName, hub.ChannelTutor)
	go client.Run()
}

// HandleNotifications serves GET /ws/notifications.
func (h *Handler) HandleNotifications(c *gin.Context) {
	caller, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithField("user_id", caller.userID).WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	client := hub.NewClient(conn, h.notificationHub, "", caller.userID, caller.username, caller.fullName, hub.ChannelNotifications)
	h.notificationHub.Attach(client)
	go client.Run()
}

func joinStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, service.ErrRoomEnded):
		return http.StatusGone
	case errors.Is(err, service.ErrJoinDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
