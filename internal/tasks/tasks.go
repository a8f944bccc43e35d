// Package tasks defines the asynq task types and payload builders shared by
// the hub (producer) and the worker (consumer).
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"collaborative-classroom/internal/domain"
)

const (
	TypeChatPersistence = "chat:persist"
	TypeEditPersistence = "edit:persist"
	TypeRoomIdleSweep   = "room:idle_sweep"
)

// ChatPersistencePayload carries one chat message to the persistence worker.
type ChatPersistencePayload struct {
	Message domain.ChatMessage `json:"message"`
}

func NewChatPersistenceTask(msg domain.ChatMessage) (*asynq.Task, error) {
	payload, err := json.Marshal(ChatPersistencePayload{Message: msg})
	if err != nil {
		return nil, fmt.Errorf("tasks: failed to marshal chat payload: %w", err)
	}
	return asynq.NewTask(TypeChatPersistence, payload), nil
}

// EditPersistencePayload carries one accepted edit to the audit-log worker.
type EditPersistencePayload struct {
	Edit domain.EditRecord `json:"edit"`
}

func NewEditPersistenceTask(edit domain.EditRecord) (*asynq.Task, error) {
	payload, err := json.Marshal(EditPersistencePayload{Edit: edit})
	if err != nil {
		return nil, fmt.Errorf("tasks: failed to marshal edit payload: %w", err)
	}
	return asynq.NewTask(TypeEditPersistence, payload), nil
}

// NewRoomIdleSweepTask builds the periodic sweep task. It carries no
// payload; the sweep threshold is server configuration.
func NewRoomIdleSweepTask() *asynq.Task {
	return asynq.NewTask(TypeRoomIdleSweep, nil)
}
