package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/service"
)

// enqueuer is the slice of *asynq.Client the hub needs. Tests substitute a
// fake.
type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Hub owns one actor per room. Actors are spawned on first attach and live
// until the room is closed or swept for idleness, so reconnecting clients
// find the in-memory document where they left it.
type Hub struct {
	mu     sync.Mutex
	actors map[string]*roomActor

	roomService     *service.RoomService
	documentService *service.DocumentService
	executor        service.Executor
	stateRepo       repository.StateRepository
	tasks           enqueuer
}

func NewHub(
	roomService *service.RoomService,
	documentService *service.DocumentService,
	executor service.Executor,
	stateRepo repository.StateRepository,
	tasks enqueuer,
) *Hub {
	if roomService == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if documentService == nil {
		panic("DocumentService cannot be nil for Hub")
	}
	if executor == nil {
		panic("Executor cannot be nil for Hub")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	if tasks == nil {
		panic("task enqueuer cannot be nil for Hub")
	}
	return &Hub{
		actors:          make(map[string]*roomActor),
		roomService:     roomService,
		documentService: documentService,
		executor:        executor,
		stateRepo:       stateRepo,
		tasks:           tasks,
	}
}

// Attach binds an upgraded connection to its room actor and returns the
// client. The caller is expected to call Run on it. canEditCode is the
// capability resolved during authorization.
func (h *Hub) Attach(conn *websocket.Conn, roomID, userID, username, fullName string, channel Channel, canEditCode bool) *Client {
	actor := h.actor(roomID)
	client := NewClient(conn, actor, roomID, userID, username, fullName, channel)
	client.canEditCode = canEditCode
	actor.post(actorMsg{kind: msgRegister, client: client})
	return client
}

// actor returns the room's actor, spawning one when none is running.
func (h *Hub) actor(roomID string) *roomActor {
	h.mu.Lock()
	defer h.mu.Unlock()
	if actor, ok := h.actors[roomID]; ok {
		return actor
	}
	actor := newRoomActor(roomID, h)
	h.actors[roomID] = actor
	go actor.run()
	logrus.WithField("room_id", roomID).Info("Room actor spawned")
	return actor
}

// CloseRoom evicts the room's actor, closing every attached connection and
// persisting the document. Closing a room with no actor is a no-op.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	actor, ok := h.actors[roomID]
	if ok {
		delete(h.actors, roomID)
	}
	h.mu.Unlock()
	if ok {
		actor.post(actorMsg{kind: msgStop})
	}
}

// SweepIdle evicts actors that have had no clients and no activity for at
// least maxIdle. Returns the number of actors evicted.
func (h *Hub) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.Lock()
	var evict []*roomActor
	for roomID, actor := range h.actors {
		if actor.clientCount.Load() == 0 && actor.lastActive().Before(cutoff) {
			evict = append(evict, actor)
			delete(h.actors, roomID)
		}
	}
	h.mu.Unlock()

	for _, actor := range evict {
		actor.post(actorMsg{kind: msgStop})
		logrus.WithField("room_id", actor.roomID).Info("Idle room actor evicted")
	}
	return len(evict)
}

// Shutdown stops every actor, flushing documents. Used on server shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	actors := make([]*roomActor, 0, len(h.actors))
	for roomID, actor := range h.actors {
		actors = append(actors, actor)
		delete(h.actors, roomID)
	}
	h.mu.Unlock()

	for _, actor := range actors {
		actor.post(actorMsg{kind: msgStop})
	}
}
