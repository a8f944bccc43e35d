// Package worker runs the asynq consumers: chat and edit persistence plus
// the periodic idle-room sweep.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/hub"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/tasks"
)

// WorkerServer wraps the asynq server with our handler wiring.
type WorkerServer struct {
	server *asynq.Server
	log    *logrus.Entry

	chatRepo     repository.ChatRepository
	documentRepo repository.DocumentRepository
	hub          *hub.Hub
}

func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	chatRepo repository.ChatRepository,
	documentRepo repository.DocumentRepository,
	h *hub.Hub,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:       server,
		log:          logEntry,
		chatRepo:     chatRepo,
		documentRepo: documentRepo,
		hub:          h,
	}
}

// Start runs the worker server. Call it in its own goroutine.
func (ws *WorkerServer) Start(idleSweepThreshold time.Duration) {
	mux := asynq.NewServeMux()

	chatHandler := NewChatPersistenceHandler(ws.chatRepo)
	mux.HandleFunc(tasks.TypeChatPersistence, chatHandler.ProcessTask)

	editHandler := NewEditPersistenceHandler(ws.documentRepo)
	mux.HandleFunc(tasks.TypeEditPersistence, editHandler.ProcessTask)

	sweepHandler := NewIdleSweepHandler(ws.hub, idleSweepThreshold)
	mux.HandleFunc(tasks.TypeRoomIdleSweep, sweepHandler.ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped")
	}
}

// Shutdown gracefully stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
}
