package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

type fakeAIClient struct {
	mock.Mock
}

func (f *fakeAIClient) Complete(ctx context.Context, sessionID, prompt string) (string, error) {
	args := f.Called(ctx, sessionID, prompt)
	return args.String(0), args.Error(1)
}

func (f *fakeAIClient) CodeHelp(ctx context.Context, sessionID, code, question string) (string, error) {
	args := f.Called(ctx, sessionID, code, question)
	return args.String(0), args.Error(1)
}

func TestTutorService_VerifySession_RejectsForeignSession(t *testing.T) {
	repo := new(mocks.TutorSessionRepository)
	ai := new(fakeAIClient)
	svc := service.NewTutorService(repo, ai)
	ctx := context.Background()

	session := &domain.TutorSession{ID: "s-1", UserID: "owner", Status: domain.TutorSessionActive}
	repo.On("FindByID", ctx, "s-1").Return(session, nil).Once()

	_, err := svc.VerifySession(ctx, "s-1", "intruder")

	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestTutorService_VerifySession_RejectsCompletedSession(t *testing.T) {
	repo := new(mocks.TutorSessionRepository)
	ai := new(fakeAIClient)
	svc := service.NewTutorService(repo, ai)
	ctx := context.Background()

	session := &domain.TutorSession{ID: "s-1", UserID: "owner", Status: domain.TutorSessionCompleted}
	repo.On("FindByID", ctx, "s-1").Return(session, nil).Once()

	_, err := svc.VerifySession(ctx, "s-1", "owner")

	assert.ErrorIs(t, err, service.ErrSessionClosed)
}

func TestTutorService_Chat_AppendsTranscript(t *testing.T) {
	repo := new(mocks.TutorSessionRepository)
	ai := new(fakeAIClient)
	svc := service.NewTutorService(repo, ai)
	ctx := context.Background()

	session := &domain.TutorSession{ID: "s-1", UserID: "owner", Status: domain.TutorSessionActive}
	repo.On("FindByID", ctx, "s-1").Return(session, nil).Once()
	ai.On("Complete", ctx, "s-1", "what is a slice?").Return("a view over an array", nil).Once()
	repo.On("Save", ctx, mock.MatchedBy(func(s *domain.TutorSession) bool {
		var transcript []domain.TutorMessage
		if err := json.Unmarshal([]byte(s.Transcript), &transcript); err != nil {
			return false
		}
		return len(transcript) == 2 &&
			transcript[0].Role == "user" &&
			transcript[1].Role == "assistant" &&
			transcript[1].Content == "a view over an array"
	})).Return(nil).Once()

	reply, err := svc.Chat(ctx, "s-1", "owner", "what is a slice?")

	require.NoError(t, err)
	assert.Equal(t, "a view over an array", reply)
	repo.AssertExpectations(t)
}

func TestTutorService_EndSession_Idempotent(t *testing.T) {
	repo := new(mocks.TutorSessionRepository)
	ai := new(fakeAIClient)
	svc := service.NewTutorService(repo, ai)
	ctx := context.Background()

	completed := &domain.TutorSession{ID: "s-1", UserID: "owner", Status: domain.TutorSessionCompleted}
	repo.On("FindByID", ctx, "s-1").Return(completed, nil).Once()
	require.NoError(t, svc.EndSession(ctx, "s-1"))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	// A session that vanished underneath us is also a no-op.
	repo.On("FindByID", ctx, "gone").Return(nil, repository.ErrSessionNotFound).Once()
	require.NoError(t, svc.EndSession(ctx, "gone"))
}
