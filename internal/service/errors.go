package service

import "errors"

// Business errors returned to handlers. The HTTP and websocket layers map
// these to status codes / error frames.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomEnded           = errors.New("room has ended")
	ErrRoomFull            = errors.New("room is full")
	ErrJoinDenied          = errors.New("join denied")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrWhiteboardDisabled  = errors.New("whiteboard is not enabled for this room")
	ErrInvalidMessage      = errors.New("invalid message data")
	ErrSessionNotFound     = errors.New("tutor session not found")
	ErrSessionClosed       = errors.New("tutor session is not active")
	ErrUserNotFound        = errors.New("user not found")
	ErrInternalServer      = errors.New("internal server error")
)
