package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// RoomService owns room lifecycle, membership and join permission logic.
type RoomService struct {
	roomRepo        repository.RoomRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
	chatRepo        repository.ChatRepository
	stateRepo       repository.StateRepository
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	stateRepo repository.StateRepository,
) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if participantRepo == nil {
		panic("ParticipantRepository cannot be nil for RoomService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for RoomService")
	}
	if chatRepo == nil {
		panic("ChatRepository cannot be nil for RoomService")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for RoomService")
	}
	return &RoomService{
		roomRepo:        roomRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		chatRepo:        chatRepo,
		stateRepo:       stateRepo,
	}
}

// CreateRoom persists a new room owned by hostID. The host gets a
// participant record immediately so private rooms remain joinable by
// their creator.
func (s *RoomService) CreateRoom(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	logCtx := logrus.WithField("host_id", room.HostID)

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Status == "" {
		room.Status = domain.RoomScheduled
	}
	if room.Privacy == "" {
		room.Privacy = domain.PrivacyPublic
	}
	if room.MaxParticipants <= 0 {
		room.MaxParticipants = 10
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Room id collision on create")
			return nil, ErrInternalServer
		}
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}

	host := &domain.Participant{
		ID:     uuid.NewString(),
		RoomID: room.ID,
		UserID: room.HostID,
		Role:   domain.RoleHost,
		Status: domain.ParticipantInvited,
	}
	host.ApplyRoleDefaults()
	if err := s.participantRepo.Save(ctx, host); err != nil {
		logCtx.WithError(err).Error("Failed to save host participant record")
		return nil, ErrInternalServer
	}

	logCtx.Info("Room created")
	return room, nil
}

// CreateOrGetRoom is the idempotent variant used by clients that supply the
// room id. A duplicate create returns the existing room, never an error.
func (s *RoomService) CreateOrGetRoom(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	created, err := s.CreateRoom(ctx, room)
	if err == nil {
		return created, nil
	}
	existing, findErr := s.roomRepo.FindByID(ctx, room.ID)
	if findErr == nil {
		return existing, nil
	}
	return nil, err
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to find room")
		return nil, ErrInternalServer
	}
	return room, nil
}

// CheckJoinPermission decides whether userID may join roomID. Any failure
// to establish permission denies the join.
func (s *RoomService) CheckJoinPermission(ctx context.Context, roomID, userID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Join denied: room not found")
			return ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Join denied: repository error")
		return ErrJoinDenied
	}
	if room.Status == domain.RoomEnded || room.Status == domain.RoomCancelled {
		logCtx.Warn("Join denied: room is not open")
		return ErrRoomEnded
	}

	participant, err := s.participantRepo.Find(ctx, roomID, userID)
	if err != nil && !errors.Is(err, repository.ErrParticipantNotFound) {
		logCtx.WithError(err).Error("Join denied: repository error on participant lookup")
		return ErrJoinDenied
	}

	switch room.Privacy {
	case domain.PrivacyPublic:
		// Any authenticated user.
	case domain.PrivacyPrivate:
		if participant == nil {
			logCtx.Warn("Join denied: private room without membership")
			return ErrJoinDenied
		}
	case domain.PrivacyInviteOnly:
		if participant == nil ||
			(participant.Status != domain.ParticipantInvited && participant.Status != domain.ParticipantJoined) {
			logCtx.Warn("Join denied: no standing invitation")
			return ErrJoinDenied
		}
	default:
		logCtx.Warnf("Join denied: unknown privacy %q", room.Privacy)
		return ErrJoinDenied
	}

	// Already-joined members (reconnects) bypass the capacity check.
	if participant == nil || participant.Status != domain.ParticipantJoined {
		joined, err := s.participantRepo.CountJoined(ctx, roomID)
		if err != nil {
			logCtx.WithError(err).Error("Join denied: failed to count participants")
			return ErrJoinDenied
		}
		if joined >= int64(room.MaxParticipants) {
			logCtx.Warn("Join denied: room is full")
			return ErrRoomFull
		}
	}
	return nil
}

// AddParticipant records a successful join. Re-joining reuses the existing
// (room, user) record. The first join of a scheduled room activates it.
func (s *RoomService) AddParticipant(ctx context.Context, roomID, userID string, role domain.ParticipantRole) (*domain.Participant, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})
	now := time.Now()

	participant, err := s.participantRepo.Find(ctx, roomID, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrParticipantNotFound) {
			logCtx.WithError(err).Error("Failed to look up participant record")
			return nil, ErrInternalServer
		}
		participant = &domain.Participant{
			ID:     uuid.NewString(),
			RoomID: roomID,
			UserID: userID,
			Role:   role,
		}
		participant.ApplyRoleDefaults()
	}

	participant.Status = domain.ParticipantJoined
	participant.JoinedAt = &now
	participant.LeftAt = nil
	if err := s.participantRepo.Save(ctx, participant); err != nil {
		logCtx.WithError(err).Error("Failed to save participant record")
		return nil, ErrInternalServer
	}

	if err := s.activateIfScheduled(ctx, roomID, now); err != nil {
		logCtx.WithError(err).Warn("Failed to activate room on first join")
	}
	logCtx.Info("Participant joined")
	return participant, nil
}

func (s *RoomService) activateIfScheduled(ctx context.Context, roomID string, at time.Time) error {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status != domain.RoomScheduled {
		return nil
	}
	room.Status = domain.RoomActive
	room.ActualStart = &at
	return s.roomRepo.Save(ctx, room)
}

// MarkLeft transitions a joined participant to left. Missing records are a
// no-op: the connection may have closed before authorization finished.
func (s *RoomService) MarkLeft(ctx context.Context, roomID, userID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	participant, err := s.participantRepo.Find(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil
		}
		logCtx.WithError(err).Error("Failed to look up participant on leave")
		return ErrInternalServer
	}
	if participant.Status != domain.ParticipantJoined {
		return nil
	}

	now := time.Now()
	participant.Status = domain.ParticipantLeft
	participant.LeftAt = &now
	if err := s.participantRepo.Save(ctx, participant); err != nil {
		logCtx.WithError(err).Error("Failed to save participant on leave")
		return ErrInternalServer
	}
	logCtx.Info("Participant left")
	return nil
}

// InviteParticipant creates an invited record for userID, gated on the
// caller being host or moderator.
func (s *RoomService) InviteParticipant(ctx context.Context, roomID, callerID, userID string, role domain.ParticipantRole) (*domain.Participant, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "caller_id": callerID, "user_id": userID})

	if err := s.requireModerator(ctx, roomID, callerID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to look up invited user")
		return nil, ErrInternalServer
	}

	existing, err := s.participantRepo.Find(ctx, roomID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrParticipantNotFound) {
		logCtx.WithError(err).Error("Failed to look up participant record for invite")
		return nil, ErrInternalServer
	}

	if role == "" {
		role = domain.RoleParticipant
	}
	participant := &domain.Participant{
		ID:     uuid.NewString(),
		RoomID: roomID,
		UserID: userID,
		Role:   role,
		Status: domain.ParticipantInvited,
	}
	participant.ApplyRoleDefaults()
	if err := s.participantRepo.Save(ctx, participant); err != nil {
		logCtx.WithError(err).Error("Failed to save invited participant")
		return nil, ErrInternalServer
	}
	logCtx.Info("Participant invited")
	return participant, nil
}

// OverrideCapabilities applies a moderator's capability override to a
// participant record.
func (s *RoomService) OverrideCapabilities(ctx context.Context, roomID, callerID, userID string, caps domain.Capabilities) (*domain.Participant, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "caller_id": callerID, "user_id": userID})

	if err := s.requireModerator(ctx, roomID, callerID); err != nil {
		return nil, err
	}
	participant, err := s.participantRepo.Find(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		logCtx.WithError(err).Error("Failed to look up participant for capability override")
		return nil, ErrInternalServer
	}

	participant.Override(caps)
	if err := s.participantRepo.Save(ctx, participant); err != nil {
		logCtx.WithError(err).Error("Failed to save capability override")
		return nil, ErrInternalServer
	}
	logCtx.Info("Capabilities overridden")
	return participant, nil
}

// EndRoom closes an active room, gated on host or moderator.
func (s *RoomService) EndRoom(ctx context.Context, roomID, callerID string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "caller_id": callerID})

	if err := s.requireModerator(ctx, roomID, callerID); err != nil {
		return nil, err
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == domain.RoomEnded {
		return room, nil
	}

	now := time.Now()
	room.Status = domain.RoomEnded
	room.ActualEnd = &now
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save ended room")
		return nil, ErrInternalServer
	}
	logCtx.Info("Room ended")
	return room, nil
}

// ListParticipants returns the membership roster, joined members first.
func (s *RoomService) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	participants, err := s.participantRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list participants")
		return nil, ErrInternalServer
	}
	joined := lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.Status == domain.ParticipantJoined
	})
	rest := lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.Status != domain.ParticipantJoined
	})
	return append(joined, rest...), nil
}

// GetParticipant returns the membership record, or ErrParticipantNotFound.
func (s *RoomService) GetParticipant(ctx context.Context, roomID, userID string) (*domain.Participant, error) {
	participant, err := s.participantRepo.Find(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).
			WithError(err).Error("Failed to find participant")
		return nil, ErrInternalServer
	}
	return participant, nil
}

// UserInfo resolves display identity for broadcast envelopes. Unknown users
// fall back to their id as username.
func (s *RoomService) UserInfo(ctx context.Context, userID string) (username, fullName string) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			logrus.WithField("user_id", userID).WithError(err).Warn("Failed to resolve user identity")
		}
		return userID, ""
	}
	return user.Username, user.FullName
}

// MergeWhiteboard folds a shape update into the room's stored whiteboard
// and returns the room as currently stored. The enable flag is checked
// against the store on every call, not against any cached copy, so a
// moderator's toggle applies to rooms that are already live.
func (s *RoomService) MergeWhiteboard(ctx context.Context, roomID string, update map[string]json.RawMessage) (*domain.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.EnableWhiteboard {
		return nil, ErrWhiteboardDisabled
	}
	if err := room.MergeWhiteboard(update); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Failed to merge whiteboard update")
		return nil, ErrInvalidMessage
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to save whiteboard state")
		return nil, ErrInternalServer
	}
	return room, nil
}

// ChatHistory returns the room's most recent messages in chronological
// order.
func (s *RoomService) ChatHistory(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.ListByRoom(ctx, roomID, limit)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list chat history")
		return nil, ErrInternalServer
	}
	return msgs, nil
}

// Presence returns the live connection count tracked in Redis.
func (s *RoomService) Presence(ctx context.Context, roomID string) int64 {
	count, err := s.stateRepo.GetPresence(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Failed to read presence counter")
		return 0
	}
	return count
}

func (s *RoomService) requireModerator(ctx context.Context, roomID, callerID string) error {
	caller, err := s.participantRepo.Find(ctx, roomID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return ErrPermissionDenied
		}
		logrus.WithFields(logrus.Fields{"room_id": roomID, "caller_id": callerID}).
			WithError(err).Error("Failed to look up caller for moderation check")
		return ErrInternalServer
	}
	if caller.Role != domain.RoleHost && caller.Role != domain.RoleModerator {
		return ErrPermissionDenied
	}
	return nil
}
