package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

type stubAI struct{}

func (stubAI) Complete(ctx context.Context, sessionID, prompt string) (string, error) {
	return "a goroutine is a lightweight thread", nil
}

func (stubAI) CodeHelp(ctx context.Context, sessionID, code, question string) (string, error) {
	return "guard the map with a mutex", nil
}

func newTutorFixture(t *testing.T) (*TutorSession, *mocks.TutorSessionRepository, *Client) {
	t.Helper()
	repo := new(mocks.TutorSessionRepository)
	svc := service.NewTutorService(repo, stubAI{})
	session := NewTutorSession("sess-1", svc)
	c := NewClient(nil, session, "", "user-a", "alice", "", ChannelTutor)
	return session, repo, c
}

func activeTutorRecord() *domain.TutorSession {
	return &domain.TutorSession{ID: "sess-1", UserID: "user-a", Status: domain.TutorSessionActive}
}

func TestTutorSession_ChatRepliesWithAIResponse(t *testing.T) {
	session, repo, c := newTutorFixture(t)
	repo.On("FindByID", mock.Anything, "sess-1").Return(activeTutorRecord(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.TutorSession")).Return(nil)

	session.HandleFrame(c, []byte(`{"type":"chat_message","message":"what is a goroutine?"}`))

	frame := decode(t, recv(c))
	assert.Equal(t, "ai_response", frame["type"])
	assert.Equal(t, "a goroutine is a lightweight thread", frame["message"])
}

func TestTutorSession_CodeHelpRepliesWithHelp(t *testing.T) {
	session, repo, c := newTutorFixture(t)
	repo.On("FindByID", mock.Anything, "sess-1").Return(activeTutorRecord(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.TutorSession")).Return(nil)

	session.HandleFrame(c, []byte(`{"type":"code_help","code":"m[k] = v","issue":"concurrent map write"}`))

	frame := decode(t, recv(c))
	assert.Equal(t, "code_help_response", frame["type"])
	assert.Equal(t, "guard the map with a mutex", frame["help"])
}

func TestTutorSession_EmptyQuestionGetsError(t *testing.T) {
	session, repo, c := newTutorFixture(t)

	session.HandleFrame(c, []byte(`{"type":"chat_message"}`))

	frame := decode(t, recv(c))
	assert.Equal(t, "error", frame["type"])
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestTutorSession_DetachCompletesSession(t *testing.T) {
	session, repo, c := newTutorFixture(t)
	repo.On("FindByID", mock.Anything, "sess-1").Return(activeTutorRecord(), nil).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(s *domain.TutorSession) bool {
		return s.Status == domain.TutorSessionCompleted && s.EndedAt != nil
	})).Return(nil).Once()

	session.Detach(c)

	repo.AssertExpectations(t)
}
