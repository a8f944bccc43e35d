package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TutorSessionStatus is the lifecycle state of an AI tutor session.
type TutorSessionStatus string

const (
	TutorSessionActive    TutorSessionStatus = "active"
	TutorSessionCompleted TutorSessionStatus = "completed"
)

// TutorMessage is one turn in a tutor conversation.
type TutorMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TutorSession is a single-user AI tutoring conversation bound to one
// websocket connection at a time. The AI text generation itself is an
// external collaborator.
type TutorSession struct {
	ID     string             `gorm:"type:char(36);primaryKey" json:"id"`
	UserID string             `gorm:"type:char(36);index;not null" json:"user_id"`
	Status TutorSessionStatus `gorm:"size:20;not null;index" json:"status"`

	// Transcript is the JSON encoding of the conversation turns.
	Transcript string `gorm:"type:mediumtext" json:"-"`

	StartedAt time.Time  `gorm:"autoCreateTime" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// AppendMessages decodes the transcript, appends the given turns and
// re-encodes it.
func (s *TutorSession) AppendMessages(msgs ...TutorMessage) error {
	var transcript []TutorMessage
	if s.Transcript != "" && s.Transcript != "null" {
		if err := json.Unmarshal([]byte(s.Transcript), &transcript); err != nil {
			return fmt.Errorf("failed to unmarshal tutor transcript: %w", err)
		}
	}
	transcript = append(transcript, msgs...)
	bytes, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal tutor transcript: %w", err)
	}
	s.Transcript = string(bytes)
	return nil
}
