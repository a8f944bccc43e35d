package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-classroom/internal/domain"
)

func TestCodeDocument_Apply_VersionAdvancesByOne(t *testing.T) {
	doc := &domain.CodeDocument{RoomID: "room-1"}
	now := time.Now()

	v1 := doc.Apply(domain.Operation{Type: domain.OpInsert, Position: 0, Text: "hello"}, 0, "user-a", now)
	v2 := doc.Apply(domain.Operation{Type: domain.OpInsert, Position: 5, Text: " world"}, 99, "user-b", now)

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
	assert.Equal(t, "hello world", doc.CurrentCode)
	// History grows in lockstep with the version counter.
	assert.Len(t, doc.History, doc.Version)
	// The client's claimed version is recorded but never gates application.
	assert.Equal(t, 99, doc.History[1].ClientVersion)
}

func TestCodeDocument_Apply_InsertsInArrivalOrder(t *testing.T) {
	doc := &domain.CodeDocument{RoomID: "room-1"}
	now := time.Now()

	doc.Apply(domain.Operation{Type: domain.OpInsert, Position: 0, Text: "a"}, 0, "user-a", now)
	doc.Apply(domain.Operation{Type: domain.OpInsert, Position: 0, Text: "b"}, 0, "user-b", now)

	// Last writer splices at the head: arrival order, not intent, decides.
	assert.Equal(t, "ba", doc.CurrentCode)
}

func TestCodeDocument_Apply_ClampsOutOfRange(t *testing.T) {
	doc := &domain.CodeDocument{RoomID: "room-1", CurrentCode: "abc", Version: 0}
	now := time.Now()

	require.NotPanics(t, func() {
		doc.Apply(domain.Operation{Type: domain.OpInsert, Position: 100, Text: "!"}, 0, "u", now)
		doc.Apply(domain.Operation{Type: domain.OpDelete, Start: -5, End: 2}, 0, "u", now)
		doc.Apply(domain.Operation{Type: domain.OpDelete, Start: 50, End: 10}, 0, "u", now)
		doc.Apply(domain.Operation{Type: domain.OpDelete, Start: 0, End: 1000}, 0, "u", now)
	})

	assert.GreaterOrEqual(t, len(doc.CurrentCode), 0)
	assert.Equal(t, 4, doc.Version)
	assert.Len(t, doc.History, 4)
	assert.Equal(t, "", doc.CurrentCode)
}

func TestCodeDocument_Apply_HandlesMultibyteRunes(t *testing.T) {
	doc := &domain.CodeDocument{RoomID: "room-1", CurrentCode: "héllo"}
	now := time.Now()

	doc.Apply(domain.Operation{Type: domain.OpDelete, Start: 1, End: 2}, 0, "u", now)

	assert.Equal(t, "hllo", doc.CurrentCode)
}

func TestCodeDocument_HistoryRoundTrip(t *testing.T) {
	doc := &domain.CodeDocument{RoomID: "room-1"}
	doc.Apply(domain.Operation{Type: domain.OpInsert, Position: 0, Text: "x"}, 3, "user-a", time.Now())

	require.NoError(t, doc.EncodeHistory())

	restored := &domain.CodeDocument{EditHistory: doc.EditHistory}
	require.NoError(t, restored.DecodeHistory())
	require.Len(t, restored.History, 1)
	assert.Equal(t, domain.OpInsert, restored.History[0].Operation.Type)
	assert.Equal(t, "user-a", restored.History[0].AuthorID)
	assert.Equal(t, 3, restored.History[0].ClientVersion)
}
