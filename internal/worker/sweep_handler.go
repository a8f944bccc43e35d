package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/hub"
)

// IdleSweepHandler evicts room actors that have sat empty past the
// threshold, flushing their documents. Driven by the periodic
// room:idle_sweep task.
type IdleSweepHandler struct {
	hub       *hub.Hub
	threshold time.Duration
}

func NewIdleSweepHandler(h *hub.Hub, threshold time.Duration) *IdleSweepHandler {
	if h == nil {
		panic("Hub cannot be nil for IdleSweepHandler")
	}
	if threshold <= 0 {
		threshold = 15 * time.Minute
	}
	return &IdleSweepHandler{hub: h, threshold: threshold}
}

// ProcessTask implements asynq.Handler.
func (h *IdleSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	evicted := h.hub.SweepIdle(h.threshold)
	if evicted > 0 {
		logrus.WithFields(logrus.Fields{
			"task_type": t.Type(),
			"evicted":   evicted,
		}).Info("Idle room sweep completed")
	}
	return nil
}
