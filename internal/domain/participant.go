package domain

import "time"

// ParticipantRole determines default capabilities inside a room.
type ParticipantRole string

const (
	RoleHost        ParticipantRole = "host"
	RoleModerator   ParticipantRole = "moderator"
	RoleParticipant ParticipantRole = "participant"
	RoleObserver    ParticipantRole = "observer"
)

// ParticipantStatus is the presence state of a (room, user) membership.
type ParticipantStatus string

const (
	ParticipantInvited ParticipantStatus = "invited"
	ParticipantJoined  ParticipantStatus = "joined"
	ParticipantLeft    ParticipantStatus = "left"
	ParticipantRemoved ParticipantStatus = "removed"
)

// Participant is a (room, user) membership record. At most one record exists
// per (room, user); re-joining transitions the existing record instead of
// creating a second one.
type Participant struct {
	ID     string            `gorm:"type:char(36);primaryKey" json:"id"`
	RoomID string            `gorm:"type:char(36);uniqueIndex:idx_room_user;not null" json:"room_id"`
	UserID string            `gorm:"type:char(36);uniqueIndex:idx_room_user;not null" json:"user_id"`
	Role   ParticipantRole   `gorm:"size:20;not null" json:"role"`
	Status ParticipantStatus `gorm:"size:20;not null;index" json:"status"`

	// Capability flags default from the role but are independently
	// overridable by a moderator.
	CanEditCode      bool `gorm:"not null" json:"can_edit_code"`
	CanShareScreen   bool `gorm:"not null" json:"can_share_screen"`
	CanUseMicrophone bool `gorm:"not null" json:"can_use_microphone"`
	CanUseCamera     bool `gorm:"not null" json:"can_use_camera"`

	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
	InvitedAt time.Time  `gorm:"autoCreateTime" json:"invited_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApplyRoleDefaults sets the capability flags to the defaults for the
// participant's role. Observers can only watch.
func (p *Participant) ApplyRoleDefaults() {
	switch p.Role {
	case RoleObserver:
		p.CanEditCode = false
		p.CanShareScreen = false
		p.CanUseMicrophone = false
		p.CanUseCamera = false
	default:
		p.CanEditCode = true
		p.CanShareScreen = true
		p.CanUseMicrophone = true
		p.CanUseCamera = true
	}
}

// Capabilities is the overridable subset of a participant record, used by
// the moderator override endpoint.
type Capabilities struct {
	CanEditCode      *bool `json:"can_edit_code,omitempty"`
	CanShareScreen   *bool `json:"can_share_screen,omitempty"`
	CanUseMicrophone *bool `json:"can_use_microphone,omitempty"`
	CanUseCamera     *bool `json:"can_use_camera,omitempty"`
}

// Override applies the non-nil fields of caps to the participant.
func (p *Participant) Override(caps Capabilities) {
	if caps.CanEditCode != nil {
		p.CanEditCode = *caps.CanEditCode
	}
	if caps.CanShareScreen != nil {
		p.CanShareScreen = *caps.CanShareScreen
	}
	if caps.CanUseMicrophone != nil {
		p.CanUseMicrophone = *caps.CanUseMicrophone
	}
	if caps.CanUseCamera != nil {
		p.CanUseCamera = *caps.CanUseCamera
	}
}
