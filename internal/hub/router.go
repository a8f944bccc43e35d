package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/service"
	"collaborative-classroom/internal/tasks"
)

// dispatch routes one inbound frame. Unknown types and malformed JSON get
// an error reply to the sender only; the connection stays open. Frames the
// sender lacks permission for are dropped without a reply.
func (a *roomActor) dispatch(c *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": a.roomID, "user_id": c.userID}).
			WithError(err).Debug("Failed to decode inbound frame")
		c.Send(marshalError("invalid message format"))
		return
	}

	switch c.channel {
	case ChannelRoom:
		switch msg.Type {
		case typeChatMessage:
			a.handleChat(c, msg)
		case typeCursorPosition:
			a.handleCursor(c, msg)
		case typeWhiteboard:
			a.handleWhiteboard(c, msg)
		case typeWebRTCSignal:
			a.handleSignal(c, msg, typeWebRTCSignal)
		case typeScreenShare:
			a.handleSignal(c, msg, typeScreenShare)
		default:
			c.Send(marshalError("unknown message type: " + msg.Type))
		}
	case ChannelCode:
		switch msg.Type {
		case typeCodeChange:
			a.handleCodeChange(c, msg)
		case typeCursorPosition, typeSelectionChange:
			a.handleCursor(c, msg)
		case typeCodeExecution:
			a.handleCodeExecution(c, msg)
		default:
			c.Send(marshalError("unknown message type: " + msg.Type))
		}
	}
}

// handleChat broadcasts to the whole room, sender included: the sender's UI
// renders its own message from the echo.
func (a *roomActor) handleChat(c *Client, msg envelope) {
	if msg.Message == "" {
		c.Send(marshalError("empty chat message"))
		return
	}

	chat := domain.ChatMessage{
		ID:       uuid.NewString(),
		RoomID:   a.roomID,
		SenderID: c.userID,
		Username: c.username,
		Body:     msg.Message,
		SentAt:   time.Now(),
	}
	payload, err := json.Marshal(chatPayload{
		Type:      typeChatMessage,
		ID:        chat.ID,
		UserID:    chat.SenderID,
		Username:  chat.Username,
		Message:   chat.Body,
		Timestamp: chat.SentAt,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal chat payload")
		return
	}
	a.broadcast(ChannelRoom, payload, nil)
	a.enqueueChat(chat)
}

// handleCursor relays cursor and selection updates to everyone else on the
// same channel. Never echoed: the sender already knows where its cursor is.
func (a *roomActor) handleCursor(c *Client, msg envelope) {
	payload, err := json.Marshal(cursorPayload{
		Type:      msg.Type,
		UserID:    c.userID,
		Username:  c.username,
		Position:  msg.Position,
		Selection: msg.Selection,
		Line:      msg.Line,
		Column:    msg.Column,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal cursor payload")
		return
	}
	a.broadcast(c.channel, payload, c)
}

// handleWhiteboard merges the shapes into room state and relays to others.
// Rooms without the whiteboard enabled accept and silently discard the
// update. The flag is resolved through the store on each update, so a
// moderator toggling it mid-session takes effect immediately; the actor's
// cached room is refreshed from the result.
func (a *roomActor) handleWhiteboard(c *Client, msg envelope) {
	if len(msg.Update) == 0 {
		c.Send(marshalError("empty whiteboard update"))
		return
	}

	room, err := a.hub.roomService.MergeWhiteboard(context.Background(), a.roomID, msg.Update)
	if err != nil {
		if errors.Is(err, service.ErrWhiteboardDisabled) {
			logrus.WithFields(logrus.Fields{"room_id": a.roomID, "user_id": c.userID}).
				Debug("Whiteboard update dropped: whiteboard disabled")
			return
		}
		logrus.WithField("room_id", a.roomID).WithError(err).Warn("Failed to merge whiteboard update")
		c.Send(marshalError("whiteboard update failed"))
		return
	}
	a.room = room

	payload, err := json.Marshal(whiteboardPayload{
		Type:   typeWhiteboard,
		UserID: c.userID,
		Update: msg.Update,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal whiteboard payload")
		return
	}
	a.broadcast(ChannelRoom, payload, c)
}

// handleSignal relays webrtc_signal and screen_share frames to the target
// user only. No target or an absent target drops the frame silently.
func (a *roomActor) handleSignal(c *Client, msg envelope, outType string) {
	if msg.TargetUser == "" {
		logrus.WithFields(logrus.Fields{"room_id": a.roomID, "user_id": c.userID, "type": outType}).
			Debug("Signal dropped: no target user")
		return
	}
	payload, err := json.Marshal(signalPayload{
		Type:   outType,
		UserID: c.userID,
		Signal: msg.Signal,
		Action: msg.Action,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal signal payload")
		return
	}
	a.sendToUser(ChannelRoom, msg.TargetUser, payload)
}

// handleCodeChange applies the edit and broadcasts the result with the
// server-assigned version. Edits from clients without the capability are
// dropped without applying or replying.
func (a *roomActor) handleCodeChange(c *Client, msg envelope) {
	if !c.canEditCode {
		logrus.WithFields(logrus.Fields{"room_id": a.roomID, "user_id": c.userID}).
			Debug("Code change dropped: no edit capability")
		return
	}
	if msg.Operation.Type != domain.OpInsert && msg.Operation.Type != domain.OpDelete {
		c.Send(marshalError("unknown operation type"))
		return
	}
	if !a.ensureDocument() {
		c.Send(marshalError("code document unavailable"))
		return
	}

	now := time.Now()
	newVersion := a.doc.Apply(msg.Operation, msg.Version, c.userID, now)
	a.dirty = true

	payload, err := json.Marshal(codeChangePayload{
		Type:      typeCodeChange,
		UserID:    c.userID,
		Username:  c.username,
		Operation: msg.Operation,
		Version:   newVersion,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal code change payload")
		return
	}
	a.broadcast(ChannelCode, payload, c)
	a.enqueueEdit(msg.Operation, msg.Version, newVersion, c.userID, now)
}

// handleCodeExecution runs the code out of process. The actor keeps
// draining its mailbox while the run is in flight; the result comes back as
// an execResult message and broadcasts to the whole room.
func (a *roomActor) handleCodeExecution(c *Client, msg envelope) {
	if msg.Code == "" {
		c.Send(marshalError("empty code execution request"))
		return
	}
	language := msg.Language
	if language == "" && a.room != nil {
		language = a.room.ProgrammingLanguage
	}

	go func() {
		result := a.hub.executor.Execute(context.Background(), language, msg.Code)
		a.post(actorMsg{kind: msgExecResult, initiator: c, result: result})
	}()
}

func (a *roomActor) broadcastExecResult(initiator *Client, result service.ExecutionResult) {
	payload, err := json.Marshal(executionResultPayload{
		Type:     typeExecutionResult,
		UserID:   initiator.userID,
		Username: initiator.username,
		Success:  result.Success,
		Output:   result.Output,
		Error:    result.Error,
		TimeMS:   result.TimeMS,
		MemoryKB: result.MemoryKB,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal execution result")
		return
	}
	a.broadcast(ChannelCode, payload, nil)
}

// broadcastPresence tells the other room-channel clients that someone
// joined or left. The subject never receives its own presence frame.
func (a *roomActor) broadcastPresence(eventType string, subject *Client) {
	payload, err := json.Marshal(presencePayload{
		Type:     eventType,
		UserID:   subject.userID,
		Username: subject.username,
		FullName: subject.fullName,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal presence payload")
		return
	}
	a.broadcast(ChannelRoom, payload, subject)
}

// sendCodeState pushes the current document to a newly attached code-channel
// client.
func (a *roomActor) sendCodeState(ctx context.Context, c *Client) {
	if !a.ensureDocument() {
		c.Send(marshalError("code document unavailable"))
		return
	}
	payload, err := json.Marshal(codeStatePayload{
		Type:    typeCodeState,
		Code:    a.doc.CurrentCode,
		Version: a.doc.Version,
	})
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to marshal code state")
		return
	}
	c.Send(payload)
}

// ensureDocument lazily loads the room's document into the actor.
func (a *roomActor) ensureDocument() bool {
	if a.doc != nil {
		return true
	}
	doc, err := a.hub.documentService.Load(context.Background(), a.roomID)
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to load code document")
		return false
	}
	a.doc = doc
	return true
}

func (a *roomActor) enqueueChat(msg domain.ChatMessage) {
	task, err := tasks.NewChatPersistenceTask(msg)
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to build chat persistence task")
		return
	}
	if _, err := a.hub.tasks.Enqueue(task, asynq.Queue("default")); err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Warn("Failed to enqueue chat persistence task")
	}
}

func (a *roomActor) enqueueEdit(op domain.Operation, clientVersion, serverVersion int, authorID string, at time.Time) {
	record := domain.EditRecord{
		ID:            uuid.NewString(),
		RoomID:        a.roomID,
		AuthorID:      authorID,
		ClientVersion: clientVersion,
		ServerVersion: serverVersion,
		Timestamp:     at,
	}
	if err := record.SetOperation(op); err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to encode edit record")
		return
	}
	task, err := tasks.NewEditPersistenceTask(record)
	if err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to build edit persistence task")
		return
	}
	if _, err := a.hub.tasks.Enqueue(task, asynq.Queue("low")); err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Warn("Failed to enqueue edit persistence task")
	}
}
