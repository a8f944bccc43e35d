package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// AIClient generates tutor responses. Implementations wrap whichever model
// backend is deployed; the engine treats the text as opaque.
type AIClient interface {
	Complete(ctx context.Context, sessionID, prompt string) (string, error)
	CodeHelp(ctx context.Context, sessionID, code, question string) (string, error)
}

// HTTPAIClient talks to the AI backend over HTTP.
type HTTPAIClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPAIClient(endpoint string, timeout time.Duration) *HTTPAIClient {
	if endpoint == "" {
		panic("endpoint cannot be empty for HTTPAIClient")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPAIClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type aiRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Code      string `json:"code,omitempty"`
	Mode      string `json:"mode"`
}

type aiResponse struct {
	Content string `json:"content"`
}

func (c *HTTPAIClient) Complete(ctx context.Context, sessionID, prompt string) (string, error) {
	return c.call(ctx, aiRequest{SessionID: sessionID, Prompt: prompt, Mode: "chat"})
}

func (c *HTTPAIClient) CodeHelp(ctx context.Context, sessionID, code, question string) (string, error) {
	return c.call(ctx, aiRequest{SessionID: sessionID, Prompt: question, Code: code, Mode: "code_help"})
}

func (c *HTTPAIClient) call(ctx context.Context, reqBody aiRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ai: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: backend returned status %d", resp.StatusCode)
	}

	var parsed aiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ai: failed to decode response: %w", err)
	}
	return parsed.Content, nil
}

// TutorService owns AI tutor sessions: ownership checks, conversation
// transcripts and completion on disconnect.
type TutorService struct {
	sessionRepo repository.TutorSessionRepository
	ai          AIClient
}

func NewTutorService(sessionRepo repository.TutorSessionRepository, ai AIClient) *TutorService {
	if sessionRepo == nil {
		panic("TutorSessionRepository cannot be nil for TutorService")
	}
	if ai == nil {
		panic("AIClient cannot be nil for TutorService")
	}
	return &TutorService{sessionRepo: sessionRepo, ai: ai}
}

// VerifySession checks that the session exists, belongs to userID and is
// still active. Connections failing any check are refused.
func (s *TutorService) VerifySession(ctx context.Context, sessionID, userID string) (*domain.TutorSession, error) {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "user_id": userID})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			logCtx.Warn("Tutor session not found")
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Failed to find tutor session")
		return nil, ErrInternalServer
	}
	if session.UserID != userID {
		logCtx.Warn("Tutor session belongs to a different user")
		return nil, ErrSessionNotFound
	}
	if session.Status != domain.TutorSessionActive {
		logCtx.Warn("Tutor session is not active")
		return nil, ErrSessionClosed
	}
	return session, nil
}

// Chat sends a conversational prompt and appends both turns to the
// transcript.
func (s *TutorService) Chat(ctx context.Context, sessionID, userID, prompt string) (string, error) {
	session, err := s.VerifySession(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	reply, err := s.ai.Complete(ctx, sessionID, prompt)
	if err != nil {
		logrus.WithField("session_id", sessionID).WithError(err).Warn("AI completion failed")
		return "", ErrInternalServer
	}
	s.record(ctx, session, prompt, reply)
	return reply, nil
}

// CodeHelp sends code plus a question and appends both turns to the
// transcript.
func (s *TutorService) CodeHelp(ctx context.Context, sessionID, userID, code, question string) (string, error) {
	session, err := s.VerifySession(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	reply, err := s.ai.CodeHelp(ctx, sessionID, code, question)
	if err != nil {
		logrus.WithField("session_id", sessionID).WithError(err).Warn("AI code help failed")
		return "", ErrInternalServer
	}
	s.record(ctx, session, question, reply)
	return reply, nil
}

// EndSession marks the session completed. Called on disconnect; already
// completed sessions are a no-op.
func (s *TutorService) EndSession(ctx context.Context, sessionID string) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		logrus.WithField("session_id", sessionID).WithError(err).Error("Failed to find tutor session on end")
		return ErrInternalServer
	}
	if session.Status == domain.TutorSessionCompleted {
		return nil
	}

	now := time.Now()
	session.Status = domain.TutorSessionCompleted
	session.EndedAt = &now
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		logrus.WithField("session_id", sessionID).WithError(err).Error("Failed to complete tutor session")
		return ErrInternalServer
	}
	return nil
}

// record appends the exchange to the transcript. A failed transcript write
// is logged, not surfaced: the user already has the reply.
func (s *TutorService) record(ctx context.Context, session *domain.TutorSession, prompt, reply string) {
	now := time.Now()
	err := session.AppendMessages(
		domain.TutorMessage{Role: "user", Content: prompt, Timestamp: now},
		domain.TutorMessage{Role: "assistant", Content: reply, Timestamp: now},
	)
	if err != nil {
		logrus.WithField("session_id", session.ID).WithError(err).Warn("Failed to append tutor transcript")
		return
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		logrus.WithField("session_id", session.ID).WithError(err).Warn("Failed to save tutor transcript")
	}
}
