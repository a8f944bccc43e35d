package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoomType classifies what a collaboration room is used for.
type RoomType string

const (
	RoomPairProgramming RoomType = "pair_programming"
	RoomStudyGroup      RoomType = "study_group"
	RoomLiveSession     RoomType = "live_session"
	RoomOfficeHours     RoomType = "office_hours"
	RoomProjectWork     RoomType = "project_collaboration"
	RoomCodeReview      RoomType = "code_review"
	RoomWhiteboard      RoomType = "whiteboard"
)

// RoomStatus is the room lifecycle state. A room moves scheduled -> active
// on the first successful join and active -> ended on explicit close; it
// never moves back to scheduled.
type RoomStatus string

const (
	RoomScheduled RoomStatus = "scheduled"
	RoomActive    RoomStatus = "active"
	RoomEnded     RoomStatus = "ended"
	RoomCancelled RoomStatus = "cancelled"
)

// RoomPrivacy controls who may join.
type RoomPrivacy string

const (
	PrivacyPublic     RoomPrivacy = "public"
	PrivacyPrivate    RoomPrivacy = "private"
	PrivacyInviteOnly RoomPrivacy = "invite_only"
)

// Room is a scoped real-time session grouping participants and their shared
// state (code document, chat, whiteboard).
type Room struct {
	ID          string      `gorm:"type:char(36);primaryKey" json:"id"`
	Name        string      `gorm:"size:200;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	RoomType    RoomType    `gorm:"size:30;not null" json:"room_type"`
	Status      RoomStatus  `gorm:"size:20;not null;index" json:"status"`
	Privacy     RoomPrivacy `gorm:"size:20;not null" json:"privacy"`

	HostID          string `gorm:"type:char(36);index;not null" json:"host_id"`
	MaxParticipants int    `gorm:"not null" json:"max_participants"`

	ProgrammingLanguage string `gorm:"size:50" json:"programming_language,omitempty"`

	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualEnd      *time.Time `json:"actual_end,omitempty"`

	EnableVideo       bool `gorm:"not null;default:true" json:"enable_video"`
	EnableAudio       bool `gorm:"not null;default:true" json:"enable_audio"`
	EnableScreenShare bool `gorm:"not null;default:true" json:"enable_screen_share"`
	EnableCodeEditor  bool `gorm:"not null;default:true" json:"enable_code_editor"`
	EnableWhiteboard  bool `gorm:"not null;default:false" json:"enable_whiteboard"`
	EnableRecording   bool `gorm:"not null;default:false" json:"enable_recording"`

	// WhiteboardData is a JSON object mapping shape id -> shape data.
	WhiteboardData string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Room) IsActive() bool {
	return r.Status == RoomActive
}

// WhiteboardState decodes the stored whiteboard blob. An empty blob decodes
// to an empty, non-nil map.
func (r *Room) WhiteboardState() (map[string]json.RawMessage, error) {
	state := make(map[string]json.RawMessage)
	if r.WhiteboardData == "" || r.WhiteboardData == "null" {
		return state, nil
	}
	if err := json.Unmarshal([]byte(r.WhiteboardData), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal whiteboard data: %w", err)
	}
	return state, nil
}

// MergeWhiteboard merges an update (shape id -> shape data) into the stored
// whiteboard blob. Existing shapes with matching ids are overwritten.
func (r *Room) MergeWhiteboard(update map[string]json.RawMessage) error {
	state, err := r.WhiteboardState()
	if err != nil {
		return err
	}
	for id, shape := range update {
		state[id] = shape
	}
	bytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal whiteboard data: %w", err)
	}
	r.WhiteboardData = string(bytes)
	return nil
}
