package repository

import (
	"context"

	"collaborative-classroom/internal/domain"
)

// TutorSessionRepository stores AI tutor conversation sessions.
type TutorSessionRepository interface {
	// FindByID returns the session, or ErrSessionNotFound.
	FindByID(ctx context.Context, id string) (*domain.TutorSession, error)

	// Save creates or updates a session record.
	Save(ctx context.Context, s *domain.TutorSession) error
}
