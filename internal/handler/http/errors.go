package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/service"
)

// HandleServiceError maps business errors to HTTP statuses. Anything not
// recognized is logged and reported as a generic 500.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrParticipantNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrUserNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPermissionDenied), errors.Is(err, service.ErrJoinDenied):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRoomFull):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRoomEnded):
		ErrorResponse(c, http.StatusGone, err.Error())
	case errors.Is(err, service.ErrSessionClosed):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidMessage):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "an unexpected error occurred")
	}
}
