package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
	"collaborative-classroom/internal/repository/mocks"
	"collaborative-classroom/internal/service"
)

func TestDocumentService_Load_ReturnsExisting(t *testing.T) {
	repo := new(mocks.DocumentRepository)
	svc := service.NewDocumentService(repo)
	ctx := context.Background()

	existing := &domain.CodeDocument{ID: "doc-1", RoomID: "room-1", CurrentCode: "print(1)", Version: 3}
	repo.On("FindByRoom", ctx, "room-1").Return(existing, nil).Once()

	doc, err := svc.Load(ctx, "room-1")

	require.NoError(t, err)
	assert.Equal(t, existing, doc)
}

func TestDocumentService_Load_CreatesEmptyInMemory(t *testing.T) {
	repo := new(mocks.DocumentRepository)
	svc := service.NewDocumentService(repo)
	ctx := context.Background()

	repo.On("FindByRoom", ctx, "room-1").Return(nil, repository.ErrDocumentNotFound).Once()

	doc, err := svc.Load(ctx, "room-1")

	require.NoError(t, err)
	assert.Equal(t, "room-1", doc.RoomID)
	assert.Equal(t, 0, doc.Version)
	assert.Empty(t, doc.CurrentCode)
	// Nothing is persisted for a room that never sees an edit.
	repo.AssertNotCalled(t, "Save", ctx, doc)
}

func TestDocumentService_PersistEdits_EmptyBatchIsNoOp(t *testing.T) {
	repo := new(mocks.DocumentRepository)
	svc := service.NewDocumentService(repo)

	require.NoError(t, svc.PersistEdits(context.Background(), nil))
	repo.AssertNotCalled(t, "SaveEdits")
}
