package hub

import (
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

// fakeEnqueuer records enqueued tasks instead of touching Redis.
type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type hubFixture struct {
	hub             *Hub
	actor           *roomActor
	roomRepo        *mocks.RoomRepository
	participantRepo *mocks.ParticipantRepository
	documentRepo    *mocks.DocumentRepository
	stateRepo       *mocks.StateRepository
	enqueuer        *fakeEnqueuer
}

func newHubFixture(t *testing.T, room *domain.Room) *hubFixture {
	t.Helper()
	f := &hubFixture{
		roomRepo:        new(mocks.RoomRepository),
		participantRepo: new(mocks.ParticipantRepository),
		documentRepo:    new(mocks.DocumentRepository),
		stateRepo:       new(mocks.StateRepository),
		enqueuer:        &fakeEnqueuer{},
	}
	roomService := service.NewRoomService(
		f.roomRepo, f.participantRepo, new(mocks.UserRepository), new(mocks.ChatRepository), f.stateRepo)
	documentService := service.NewDocumentService(f.documentRepo)
	executor := service.NewHTTPExecutionService("http://127.0.0.1:1/execute", 0)

	f.hub = NewHub(roomService, documentService, executor, f.stateRepo, f.enqueuer)
	f.actor = newRoomActor(room.ID, f.hub)
	f.actor.room = room
	return f
}

// attach places a client on the actor without going through register, so
// tests drive dispatch synchronously with no service calls.
func (f *hubFixture) attach(userID, username string, channel Channel, canEdit bool) *Client {
	c := NewClient(nil, f.actor, f.actor.roomID, userID, username, "", channel)
	c.canEditCode = canEdit
	f.actor.clients[c] = true
	f.actor.clientCount.Store(int64(len(f.actor.clients)))
	return c
}

// recv pops one queued frame, or nil when the client has nothing pending.
func recv(c *Client) []byte {
	select {
	case msg := <-c.send:
		return msg
	default:
		return nil
	}
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	require.NotNil(t, data, "expected a frame but the queue was empty")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func activeRoom() *domain.Room {
	return &domain.Room{
		ID:               "room-1",
		Status:           domain.RoomActive,
		Privacy:          domain.PrivacyPublic,
		MaxParticipants:  10,
		EnableWhiteboard: true,
	}
}

func TestRouter_ChatEchoesToSender(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{"type":"chat_message","message":"hi all"}`))

	for _, c := range []*Client{alice, bob} {
		frame := decode(t, recv(c))
		assert.Equal(t, "chat_message", frame["type"])
		assert.Equal(t, "hi all", frame["message"])
		assert.Equal(t, "user-a", frame["user_id"])
	}
	// The message heads to the persistence queue exactly once.
	require.Len(t, f.enqueuer.tasks, 1)
	assert.Equal(t, "chat:persist", f.enqueuer.tasks[0].Type())
}

func TestRouter_CursorNeverEchoes(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{"type":"cursor_position","position":{"line":3,"col":7}}`))

	assert.Nil(t, recv(alice))
	frame := decode(t, recv(bob))
	assert.Equal(t, "cursor_position", frame["type"])
	assert.Equal(t, "user-a", frame["user_id"])
}

func TestRouter_CursorCarriesLineAndColumn(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelCode, true)
	bob := f.attach("user-b", "bob", ChannelCode, true)

	f.actor.dispatch(alice, []byte(`{"type":"cursor_position","position":{"offset":42},"line":3,"column":7}`))

	assert.Nil(t, recv(alice))
	frame := decode(t, recv(bob))
	assert.Equal(t, "cursor_position", frame["type"])
	assert.Equal(t, float64(3), frame["line"])
	assert.Equal(t, float64(7), frame["column"])
}

func TestRouter_WebRTCSignalTargetOnly(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)
	carol := f.attach("user-c", "carol", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{"type":"webrtc_signal","signal":{"sdp":"offer"},"target_user":"user-b"}`))

	assert.Nil(t, recv(alice))
	assert.Nil(t, recv(carol))
	frame := decode(t, recv(bob))
	assert.Equal(t, "webrtc_signal", frame["type"])
	assert.Equal(t, "user-a", frame["user_id"])
}

func TestRouter_SignalWithoutTargetSilentlyDropped(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{"type":"screen_share","action":"start"}`))

	assert.Nil(t, recv(alice))
	assert.Nil(t, recv(bob))
}

func TestRouter_WhiteboardDisabledSilentlyDropped(t *testing.T) {
	room := activeRoom()
	room.EnableWhiteboard = false
	f := newHubFixture(t, room)
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.roomRepo.On("FindByID", mock.Anything, "room-1").Return(room, nil).Once()

	f.actor.dispatch(alice, []byte(`{"type":"whiteboard_update","update":{"shape-1":{"kind":"rect"}}}`))

	// Accepted, not merged, not broadcast, no error reply.
	assert.Nil(t, recv(alice))
	assert.Nil(t, recv(bob))
	f.roomRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRouter_WhiteboardGateReadsCurrentRoomState(t *testing.T) {
	// The actor holds a copy from before a moderator enabled the
	// whiteboard; the stored room decides, not the cached one.
	stale := activeRoom()
	stale.EnableWhiteboard = false
	f := newHubFixture(t, stale)
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	current := activeRoom()
	f.roomRepo.On("FindByID", mock.Anything, "room-1").Return(current, nil).Once()
	f.roomRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Room")).Return(nil).Once()

	f.actor.dispatch(alice, []byte(`{"type":"whiteboard_update","update":{"shape-1":{"kind":"rect"}}}`))

	frame := decode(t, recv(bob))
	assert.Equal(t, "whiteboard_update", frame["type"])
	assert.True(t, f.actor.room.EnableWhiteboard)
	f.roomRepo.AssertExpectations(t)
}

func TestRouter_WhiteboardMergesAndRelays(t *testing.T) {
	room := activeRoom()
	f := newHubFixture(t, room)
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.roomRepo.On("FindByID", mock.Anything, "room-1").Return(room, nil).Once()
	f.roomRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Room")).Return(nil).Once()

	f.actor.dispatch(alice, []byte(`{"type":"whiteboard_update","update":{"shape-1":{"kind":"rect"}}}`))

	assert.Nil(t, recv(alice))
	frame := decode(t, recv(bob))
	assert.Equal(t, "whiteboard_update", frame["type"])
	f.roomRepo.AssertExpectations(t)
}

func TestRouter_CodeChangeWithoutCapabilitySilentlyDropped(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	f.actor.doc = &domain.CodeDocument{RoomID: "room-1"}
	observer := f.attach("user-o", "observer", ChannelCode, false)
	bob := f.attach("user-b", "bob", ChannelCode, true)

	f.actor.dispatch(observer, []byte(`{"type":"code_change","operation":{"type":"insert","position":0,"text":"x"},"version":0}`))

	assert.Nil(t, recv(observer))
	assert.Nil(t, recv(bob))
	assert.Equal(t, 0, f.actor.doc.Version)
	assert.Empty(t, f.enqueuer.tasks)
}

func TestRouter_CodeChangeAppliesAndBroadcastsServerVersion(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	f.actor.doc = &domain.CodeDocument{RoomID: "room-1"}
	alice := f.attach("user-a", "alice", ChannelCode, true)
	bob := f.attach("user-b", "bob", ChannelCode, true)
	roomWatcher := f.attach("user-c", "carol", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{"type":"code_change","operation":{"type":"insert","position":0,"text":"hi"},"version":7}`))

	assert.Nil(t, recv(alice))
	assert.Nil(t, recv(roomWatcher))
	frame := decode(t, recv(bob))
	assert.Equal(t, "code_change", frame["type"])
	// Broadcast carries the server-assigned version, not the claimed one.
	assert.Equal(t, float64(1), frame["version"])
	assert.Equal(t, "hi", f.actor.doc.CurrentCode)

	require.Len(t, f.enqueuer.tasks, 1)
	assert.Equal(t, "edit:persist", f.enqueuer.tasks[0].Type())
}

func TestRouter_UnknownTypeErrorToSenderOnly(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{"type":"teleport"}`))

	frame := decode(t, recv(alice))
	assert.Equal(t, "error", frame["type"])
	assert.Nil(t, recv(bob))
}

func TestRouter_MalformedJSONErrorToSenderOnly(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.actor.dispatch(alice, []byte(`{not json`))

	frame := decode(t, recv(alice))
	assert.Equal(t, "error", frame["type"])
	assert.Nil(t, recv(bob))
}

func TestActor_RegisterCodeChannelSendsCodeState(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	f.stateRepo.On("IncrementPresence", mock.Anything, "room-1").Return(int64(1), nil).Once()
	f.documentRepo.On("FindByRoom", mock.Anything, "room-1").
		Return(&domain.CodeDocument{RoomID: "room-1", CurrentCode: "print(1)", Version: 5}, nil).Once()

	c := NewClient(nil, f.actor, "room-1", "user-a", "alice", "", ChannelCode)
	f.actor.register(c)

	frame := decode(t, recv(c))
	assert.Equal(t, "code_state", frame["type"])
	assert.Equal(t, "print(1)", frame["code"])
	assert.Equal(t, float64(5), frame["version"])
}

func TestActor_RegisterRoomChannelBroadcastsJoinToOthers(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	bob := f.attach("user-b", "bob", ChannelRoom, true)
	f.stateRepo.On("IncrementPresence", mock.Anything, "room-1").Return(int64(2), nil).Once()

	c := NewClient(nil, f.actor, "room-1", "user-a", "alice", "Alice A", ChannelRoom)
	f.actor.register(c)

	// The joiner gets no frame about itself.
	assert.Nil(t, recv(c))
	frame := decode(t, recv(bob))
	assert.Equal(t, "user_joined", frame["type"])
	assert.Equal(t, "user-a", frame["user_id"])
	assert.Equal(t, "Alice A", frame["full_name"])
}

func TestActor_UnregisterUnknownClientIsNoOp(t *testing.T) {
	f := newHubFixture(t, activeRoom())

	// A connection that never finished authorization detaches without any
	// state to clean up.
	stray := NewClient(nil, f.actor, "room-1", "user-x", "x", "", ChannelRoom)
	f.actor.unregister(stray)

	f.stateRepo.AssertNotCalled(t, "DecrementPresence", mock.Anything, mock.Anything)
	f.participantRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestActor_UnregisterMarksLeftAndNotifiesOthers(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelRoom, true)
	bob := f.attach("user-b", "bob", ChannelRoom, true)

	f.stateRepo.On("DecrementPresence", mock.Anything, "room-1").Return(int64(1), nil).Once()
	joined := &domain.Participant{RoomID: "room-1", UserID: "user-a", Status: domain.ParticipantJoined}
	f.participantRepo.On("Find", mock.Anything, "room-1", "user-a").Return(joined, nil).Once()
	f.participantRepo.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Participant) bool {
		return p.Status == domain.ParticipantLeft && p.LeftAt != nil
	})).Return(nil).Once()

	f.actor.unregister(alice)

	frame := decode(t, recv(bob))
	assert.Equal(t, "user_left", frame["type"])
	assert.Equal(t, "user-a", frame["user_id"])
	f.participantRepo.AssertExpectations(t)
}

func TestActor_CodeChannelUnregisterDoesNotMarkLeft(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	alice := f.attach("user-a", "alice", ChannelCode, true)
	f.stateRepo.On("DecrementPresence", mock.Anything, "room-1").Return(int64(0), nil).Once()

	f.actor.unregister(alice)

	// Closing the code editor does not end room membership.
	f.participantRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestActor_LastLeavePersistsDirtyDocument(t *testing.T) {
	f := newHubFixture(t, activeRoom())
	f.actor.doc = &domain.CodeDocument{RoomID: "room-1"}
	alice := f.attach("user-a", "alice", ChannelCode, true)

	f.actor.dispatch(alice, []byte(`{"type":"code_change","operation":{"type":"insert","position":0,"text":"x"},"version":0}`))

	f.stateRepo.On("DecrementPresence", mock.Anything, "room-1").Return(int64(0), nil).Once()
	f.documentRepo.On("Save", mock.Anything, f.actor.doc).Return(nil).Once()

	f.actor.unregister(alice)

	f.documentRepo.AssertExpectations(t)
}
