package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/hub"
	"collaborative-classroom/internal/middleware"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{}, nil
}

type silentAI struct{}

func (silentAI) Complete(ctx context.Context, sessionID, prompt string) (string, error) {
	return "", nil
}

func (silentAI) CodeHelp(ctx context.Context, sessionID, code, question string) (string, error) {
	return "", nil
}

type handlerFixture struct {
	handler         *Handler
	roomRepo        *mocks.RoomRepository
	participantRepo *mocks.ParticipantRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		roomRepo:        new(mocks.RoomRepository),
		participantRepo: new(mocks.ParticipantRepository),
	}
	stateRepo := new(mocks.StateRepository)
	roomService := service.NewRoomService(
		f.roomRepo, f.participantRepo, new(mocks.UserRepository), new(mocks.ChatRepository), stateRepo)
	documentService := service.NewDocumentService(new(mocks.DocumentRepository))
	executor := service.NewHTTPExecutionService("http://127.0.0.1:1/execute", 0)
	h := hub.NewHub(roomService, documentService, executor, stateRepo, noopEnqueuer{})
	notifier := hub.NewNotificationHub(
		service.NewNotificationService(new(mocks.NotificationRepository)), stateRepo)
	tutorService := service.NewTutorService(new(mocks.TutorSessionRepository), silentAI{})
	f.handler = NewHandler(h, notifier, roomService, tutorService)
	return f
}

func (f *handlerFixture) router(userID, username string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/rooms/:roomId", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUsername, username)
		f.handler.HandleRoom(c)
	})
	return r
}

func TestHandleRoom_FailedHandshakeWritesNoState(t *testing.T) {
	f := newHandlerFixture(t)

	scheduled := &domain.Room{
		ID:              "room-1",
		Status:          domain.RoomScheduled,
		Privacy:         domain.PrivacyPublic,
		MaxParticipants: 10,
		HostID:          "host-1",
	}
	f.roomRepo.On("FindByID", mock.Anything, "room-1").Return(scheduled, nil)
	f.participantRepo.On("Find", mock.Anything, "room-1", "user-a").
		Return(nil, repository.ErrParticipantNotFound)
	f.participantRepo.On("CountJoined", mock.Anything, "room-1").Return(int64(0), nil)

	// A plain GET with a valid identity but no websocket handshake headers.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/rooms/room-1", nil)
	f.router("user-a", "alice").ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// No joined participant, no room activation.
	f.participantRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.roomRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleRoom_RefusedJoinWritesNoState(t *testing.T) {
	f := newHandlerFixture(t)

	ended := &domain.Room{
		ID:              "room-1",
		Status:          domain.RoomEnded,
		Privacy:         domain.PrivacyPublic,
		MaxParticipants: 10,
	}
	f.roomRepo.On("FindByID", mock.Anything, "room-1").Return(ended, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/rooms/room-1", nil)
	f.router("user-a", "alice").ServeHTTP(w, req)

	assert.Equal(t, http.StatusGone, w.Code)
	f.participantRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
