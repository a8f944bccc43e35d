package hub

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/service"
)

type msgKind int

const (
	msgRegister msgKind = iota
	msgUnregister
	msgFrame
	msgExecResult
	msgStop
)

// actorMsg is one entry in a room actor's mailbox.
type actorMsg struct {
	kind   msgKind
	client *Client
	data   []byte

	// msgExecResult only
	result    service.ExecutionResult
	initiator *Client
}

// roomActor serializes everything that happens in one room: registration,
// unregistration and every inbound frame are handled strictly in arrival
// order by a single goroutine. Different rooms run independently.
type roomActor struct {
	roomID string
	hub    *Hub
	inbox  chan actorMsg

	// Owned by the actor goroutine.
	clients map[*Client]bool
	room    *domain.Room
	doc     *domain.CodeDocument
	dirty   bool

	// Read by the sweeper without entering the goroutine.
	clientCount    atomic.Int64
	lastActiveUnix atomic.Int64
}

func newRoomActor(roomID string, h *Hub) *roomActor {
	a := &roomActor{
		roomID:  roomID,
		hub:     h,
		inbox:   make(chan actorMsg, 512),
		clients: make(map[*Client]bool),
	}
	a.touch()
	return a
}

func (a *roomActor) lastActive() time.Time {
	return time.Unix(a.lastActiveUnix.Load(), 0)
}

func (a *roomActor) touch() {
	a.lastActiveUnix.Store(time.Now().Unix())
}

// post delivers a message to the actor's mailbox. A mailbox that stays full
// for a second means the actor is gone or wedged; the message is dropped
// with a warning rather than blocking the caller forever.
func (a *roomActor) post(msg actorMsg) {
	select {
	case a.inbox <- msg:
	case <-time.After(time.Second):
		logrus.WithFields(logrus.Fields{
			"room_id": a.roomID,
			"kind":    msg.kind,
		}).Warn("Room actor mailbox full, dropping message")
	}
}

// HandleFrame implements Session.
func (a *roomActor) HandleFrame(c *Client, data []byte) {
	a.post(actorMsg{kind: msgFrame, client: c, data: data})
}

// Detach implements Session.
func (a *roomActor) Detach(c *Client) {
	a.post(actorMsg{kind: msgUnregister, client: c})
}

func (a *roomActor) run() {
	logCtx := logrus.WithFields(logrus.Fields{"component": "room_actor", "room_id": a.roomID})
	for msg := range a.inbox {
		a.touch()
		switch msg.kind {
		case msgRegister:
			a.register(msg.client)
		case msgUnregister:
			a.unregister(msg.client)
		case msgFrame:
			a.dispatch(msg.client, msg.data)
		case msgExecResult:
			a.broadcastExecResult(msg.initiator, msg.result)
		case msgStop:
			a.stop()
			logCtx.Info("Room actor stopped")
			return
		}
	}
}

func (a *roomActor) register(c *Client) {
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": a.roomID,
		"user_id": c.userID,
		"channel": c.channel,
	})

	if a.room == nil {
		room, err := a.hub.roomService.GetRoom(ctx, a.roomID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to load room for actor")
		} else {
			a.room = room
		}
	}

	a.clients[c] = true
	a.clientCount.Store(int64(len(a.clients)))

	if _, err := a.hub.stateRepo.IncrementPresence(ctx, a.roomID); err != nil {
		logCtx.WithError(err).Warn("Failed to increment presence")
	}

	switch c.channel {
	case ChannelRoom:
		a.broadcastPresence(typeUserJoined, c)
	case ChannelCode:
		a.sendCodeState(ctx, c)
	}
	logCtx.Info("Client registered to room actor")
}

func (a *roomActor) unregister(c *Client) {
	if !a.clients[c] {
		return
	}
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": a.roomID,
		"user_id": c.userID,
		"channel": c.channel,
	})

	delete(a.clients, c)
	a.clientCount.Store(int64(len(a.clients)))
	c.CloseSend()

	if _, err := a.hub.stateRepo.DecrementPresence(ctx, a.roomID); err != nil {
		logCtx.WithError(err).Warn("Failed to decrement presence")
	}

	if c.channel == ChannelRoom {
		if err := a.hub.roomService.MarkLeft(ctx, a.roomID, c.userID); err != nil {
			logCtx.WithError(err).Warn("Failed to mark participant left")
		}
		a.broadcastPresence(typeUserLeft, c)
	}

	if len(a.clients) == 0 {
		a.persistDocument(ctx)
	}
	logCtx.Info("Client unregistered from room actor")
}

// stop closes every remaining connection and flushes the document. Safe to
// run on an actor that never loaded any state.
func (a *roomActor) stop() {
	for c := range a.clients {
		delete(a.clients, c)
		c.CloseSend()
	}
	a.clientCount.Store(0)
	a.persistDocument(context.Background())
}

func (a *roomActor) persistDocument(ctx context.Context) {
	if a.doc == nil || !a.dirty {
		return
	}
	if err := a.doc.EncodeHistory(); err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to encode edit history")
		return
	}
	if err := a.hub.documentService.Persist(ctx, a.doc); err != nil {
		logrus.WithField("room_id", a.roomID).WithError(err).Error("Failed to persist document")
		return
	}
	a.dirty = false
}

// broadcast sends a frame to every client on the given channel except the
// excluded one. Pass a nil exclude to reach everyone.
func (a *roomActor) broadcast(channel Channel, message []byte, exclude *Client) {
	for c := range a.clients {
		if c == exclude || c.channel != channel {
			continue
		}
		c.Send(message)
	}
}

// sendToUser delivers a frame to every connection the target user holds on
// the given channel. No connections means the frame is silently dropped.
func (a *roomActor) sendToUser(channel Channel, userID string, message []byte) {
	for c := range a.clients {
		if c.userID != userID || c.channel != channel {
			continue
		}
		c.Send(message)
	}
}
