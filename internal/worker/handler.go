package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/tasks"
)

// ChatPersistenceHandler writes chat messages to MySQL off the hot path.
type ChatPersistenceHandler struct {
	chatRepo repository.ChatRepository
}

func NewChatPersistenceHandler(chatRepo repository.ChatRepository) *ChatPersistenceHandler {
	if chatRepo == nil {
		panic("ChatRepository cannot be nil for ChatPersistenceHandler")
	}
	return &ChatPersistenceHandler{chatRepo: chatRepo}
}

// ProcessTask implements asynq.Handler.
func (h *ChatPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.ChatPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal chat task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.chatRepo.SaveBatch(ctx, []domain.ChatMessage{payload.Message}); err != nil {
		logCtx.WithField("room_id", payload.Message.RoomID).WithError(err).Error("Failed to save chat message")
		return fmt.Errorf("failed to save chat message %s: %w", payload.Message.ID, err)
	}
	logCtx.WithField("message_id", payload.Message.ID).Debug("Chat message persisted")
	return nil
}

// EditPersistenceHandler writes accepted edits to the audit log.
type EditPersistenceHandler struct {
	documentRepo repository.DocumentRepository
}

func NewEditPersistenceHandler(documentRepo repository.DocumentRepository) *EditPersistenceHandler {
	if documentRepo == nil {
		panic("DocumentRepository cannot be nil for EditPersistenceHandler")
	}
	return &EditPersistenceHandler{documentRepo: documentRepo}
}

// ProcessTask implements asynq.Handler.
func (h *EditPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.EditPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal edit task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.documentRepo.SaveEdits(ctx, []domain.EditRecord{payload.Edit}); err != nil {
		logCtx.WithFields(logrus.Fields{
			"room_id": payload.Edit.RoomID,
			"version": payload.Edit.ServerVersion,
		}).WithError(err).Error("Failed to save edit record")
		return fmt.Errorf("failed to save edit %s: %w", payload.Edit.ID, err)
	}
	logCtx.WithField("version", payload.Edit.ServerVersion).Debug("Edit record persisted")
	return nil
}
