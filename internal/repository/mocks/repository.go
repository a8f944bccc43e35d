// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// RoomRepository mocks repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

// ParticipantRepository mocks repository.ParticipantRepository.
type ParticipantRepository struct {
	mock.Mock
}

func (m *ParticipantRepository) Find(ctx context.Context, roomID, userID string) (*domain.Participant, error) {
	args := m.Called(ctx, roomID, userID)
	p, _ := args.Get(0).(*domain.Participant)
	return p, args.Error(1)
}

func (m *ParticipantRepository) Save(ctx context.Context, p *domain.Participant) error {
	return m.Called(ctx, p).Error(0)
}

func (m *ParticipantRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	args := m.Called(ctx, roomID)
	list, _ := args.Get(0).([]domain.Participant)
	return list, args.Error(1)
}

func (m *ParticipantRepository) CountJoined(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

// DocumentRepository mocks repository.DocumentRepository.
type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) FindByRoom(ctx context.Context, roomID string) (*domain.CodeDocument, error) {
	args := m.Called(ctx, roomID)
	doc, _ := args.Get(0).(*domain.CodeDocument)
	return doc, args.Error(1)
}

func (m *DocumentRepository) Save(ctx context.Context, doc *domain.CodeDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *DocumentRepository) SaveEdits(ctx context.Context, edits []domain.EditRecord) error {
	return m.Called(ctx, edits).Error(0)
}

// ChatRepository mocks repository.ChatRepository.
type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) SaveBatch(ctx context.Context, msgs []domain.ChatMessage) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *ChatRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	list, _ := args.Get(0).([]domain.ChatMessage)
	return list, args.Error(1)
}

// NotificationRepository mocks repository.NotificationRepository.
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) FindByID(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, notificationID)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// UserRepository mocks repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

// TutorSessionRepository mocks repository.TutorSessionRepository.
type TutorSessionRepository struct {
	mock.Mock
}

func (m *TutorSessionRepository) FindByID(ctx context.Context, id string) (*domain.TutorSession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*domain.TutorSession)
	return s, args.Error(1)
}

func (m *TutorSessionRepository) Save(ctx context.Context, s *domain.TutorSession) error {
	return m.Called(ctx, s).Error(0)
}

// StateRepository mocks repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) IncrementPresence(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) DecrementPresence(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) GetPresence(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *StateRepository) PublishNotification(ctx context.Context, n domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *StateRepository) SubscribeNotifications(ctx context.Context) (repository.NotificationStream, error) {
	args := m.Called(ctx)
	stream, _ := args.Get(0).(repository.NotificationStream)
	return stream, args.Error(1)
}
