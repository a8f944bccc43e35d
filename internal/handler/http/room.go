package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/hub"
	"collaborative-classroom/internal/middleware"
	"collaborative-classroom/internal/service"
)

// RoomHandler serves the room management REST surface.
type RoomHandler struct {
	roomService *service.RoomService
	hub         *hub.Hub
}

func NewRoomHandler(roomService *service.RoomService, h *hub.Hub) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	if h == nil {
		panic("Hub cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, hub: h}
}

func callerID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return "", false
	}
	return userID, true
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name" binding:"required"`
	Description         string             `json:"description"`
	RoomType            domain.RoomType    `json:"room_type" binding:"required"`
	Privacy             domain.RoomPrivacy `json:"privacy"`
	MaxParticipants     int                `json:"max_participants"`
	ProgrammingLanguage string             `json:"programming_language"`
	ScheduledStart      time.Time          `json:"scheduled_start"`
	ScheduledEnd        time.Time          `json:"scheduled_end"`
	EnableVideo         *bool              `json:"enable_video"`
	EnableAudio         *bool              `json:"enable_audio"`
	EnableScreenShare   *bool              `json:"enable_screen_share"`
	EnableCodeEditor    *bool              `json:"enable_code_editor"`
	EnableWhiteboard    *bool              `json:"enable_whiteboard"`
}

// CreateRoom handles POST /api/rooms. Supplying an id makes the call
// idempotent: re-posting an existing id returns the existing room.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	room := &domain.Room{
		ID:                  req.ID,
		Name:                req.Name,
		Description:         req.Description,
		RoomType:            req.RoomType,
		Privacy:             req.Privacy,
		HostID:              userID,
		MaxParticipants:     req.MaxParticipants,
		ProgrammingLanguage: req.ProgrammingLanguage,
		ScheduledStart:      req.ScheduledStart,
		ScheduledEnd:        req.ScheduledEnd,
		EnableVideo:         true,
		EnableAudio:         true,
		EnableScreenShare:   true,
		EnableCodeEditor:    true,
	}
	if req.EnableVideo != nil {
		room.EnableVideo = *req.EnableVideo
	}
	if req.EnableAudio != nil {
		room.EnableAudio = *req.EnableAudio
	}
	if req.EnableScreenShare != nil {
		room.EnableScreenShare = *req.EnableScreenShare
	}
	if req.EnableCodeEditor != nil {
		room.EnableCodeEditor = *req.EnableCodeEditor
	}
	if req.EnableWhiteboard != nil {
		room.EnableWhiteboard = *req.EnableWhiteboard
	}

	created, err := h.roomService.CreateOrGetRoom(c.Request.Context(), room)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"room_id": created.ID, "host_id": userID}).Info("Room created via REST")
	SuccessResponse(c, http.StatusCreated, created)
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"room":     room,
		"presence": h.roomService.Presence(c.Request.Context(), room.ID),
	})
}

// ListParticipants handles GET /api/rooms/:roomId/participants.
func (h *RoomHandler) ListParticipants(c *gin.Context) {
	roomID := c.Param("roomId")
	if _, err := h.roomService.GetRoom(c.Request.Context(), roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	participants, err := h.roomService.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"participants": participants})
}

// ChatHistory handles GET /api/rooms/:roomId/messages?limit=N.
func (h *RoomHandler) ChatHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	msgs, err := h.roomService.ChatHistory(c.Request.Context(), c.Param("roomId"), limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"messages": msgs})
}

// InviteRequest is the body of POST /api/rooms/:roomId/invite.
type InviteRequest struct {
	UserID string                 `json:"user_id" binding:"required"`
	Role   domain.ParticipantRole `json:"role"`
}

// Invite handles POST /api/rooms/:roomId/invite. Host or moderator only.
func (h *RoomHandler) Invite(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	participant, err := h.roomService.InviteParticipant(c.Request.Context(), c.Param("roomId"), userID, req.UserID, req.Role)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, participant)
}

// CapabilitiesRequest is the body of PATCH
// /api/rooms/:roomId/participants/:userId/capabilities.
type CapabilitiesRequest struct {
	domain.Capabilities
}

// OverrideCapabilities handles the moderator capability override. Changes
// take effect for connections opened after the call.
func (h *RoomHandler) OverrideCapabilities(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req CapabilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	participant, err := h.roomService.OverrideCapabilities(c.Request.Context(), c.Param("roomId"), userID, c.Param("userId"), req.Capabilities)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, participant)
}

// EndRoom handles POST /api/rooms/:roomId/end. Ending a room also evicts
// its actor, closing every live connection and flushing the document.
func (h *RoomHandler) EndRoom(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	room, err := h.roomService.EndRoom(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.CloseRoom(room.ID)
	logrus.WithFields(logrus.Fields{"room_id": room.ID, "caller_id": userID}).Info("Room ended via REST")
	SuccessResponse(c, http.StatusOK, room)
}
