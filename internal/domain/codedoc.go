package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// OpType tags an edit operation variant.
type OpType string

const (
	OpInsert OpType = "insert"
	OpDelete OpType = "delete"
)

// Operation is a single edit against a room's shared text. Insert uses
// Position and Text; Delete removes the [Start, End) slice. Positions are
// rune offsets and are clamped rather than rejected when out of range.
type Operation struct {
	Type     OpType `json:"type"`
	Position int    `json:"position,omitempty"`
	Text     string `json:"text,omitempty"`
	Start    int    `json:"start,omitempty"`
	End      int    `json:"end,omitempty"`
}

// EditEntry is one audit record in a document's append-only history. The
// client-supplied version is recorded but never used for conflict
// resolution; the server-assigned version is authoritative.
type EditEntry struct {
	Operation     Operation `json:"operation"`
	ClientVersion int       `json:"version"`
	AuthorID      string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// CodeDocument is the per-room authoritative text buffer. One document
// exists per room, created lazily on the first edit and owned by the room.
type CodeDocument struct {
	ID       string `gorm:"type:char(36);primaryKey" json:"id"`
	RoomID   string `gorm:"type:char(36);uniqueIndex;not null" json:"room_id"`
	Filename string `gorm:"size:200;not null" json:"filename"`
	Language string `gorm:"size:50" json:"language,omitempty"`

	CurrentCode string `gorm:"type:mediumtext" json:"current_code"`
	// Version increases by exactly 1 per accepted operation. It always
	// equals len(History).
	Version int `gorm:"not null" json:"version"`

	// EditHistory is the JSON encoding of History, kept for persistence.
	EditHistory string      `gorm:"type:mediumtext" json:"-"`
	History     []EditEntry `gorm:"-" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Apply splices op into the current text and assigns the next version.
// Application is last-writer-applies in arrival order: the server does not
// transform, reject or rebase concurrent operations (this is deliberately
// not a convergent OT/CRDT). Out-of-range offsets are clamped so that a
// malformed operation can never panic or produce negative-length text.
func (d *CodeDocument) Apply(op Operation, clientVersion int, authorID string, at time.Time) int {
	d.History = append(d.History, EditEntry{
		Operation:     op,
		ClientVersion: clientVersion,
		AuthorID:      authorID,
		Timestamp:     at,
	})

	runes := []rune(d.CurrentCode)
	switch op.Type {
	case OpInsert:
		pos := clamp(op.Position, 0, len(runes))
		d.CurrentCode = string(runes[:pos]) + op.Text + string(runes[pos:])
	case OpDelete:
		start := clamp(op.Start, 0, len(runes))
		end := clamp(op.End, start, len(runes))
		d.CurrentCode = string(runes[:start]) + string(runes[end:])
	}

	d.Version++
	return d.Version
}

// EncodeHistory serializes History into EditHistory for persistence.
func (d *CodeDocument) EncodeHistory() error {
	bytes, err := json.Marshal(d.History)
	if err != nil {
		return fmt.Errorf("failed to marshal edit history: %w", err)
	}
	d.EditHistory = string(bytes)
	return nil
}

// DecodeHistory restores History from the persisted EditHistory blob.
func (d *CodeDocument) DecodeHistory() error {
	d.History = nil
	if d.EditHistory == "" || d.EditHistory == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(d.EditHistory), &d.History); err != nil {
		return fmt.Errorf("failed to unmarshal edit history: %w", err)
	}
	return nil
}

// EditRecord is the row form of one history entry, written in batches by a
// background worker for audit queries. ServerVersion is the authoritative
// version the edit produced; ClientVersion is what the client claimed.
type EditRecord struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	RoomID        string    `gorm:"type:char(36);index;not null"`
	AuthorID      string    `gorm:"type:char(36);index;not null"`
	OpType        OpType    `gorm:"size:20;not null"`
	OpData        string    `gorm:"type:text;not null"`
	ClientVersion int       `gorm:"not null"`
	ServerVersion int       `gorm:"not null"`
	Timestamp     time.Time `gorm:"index;not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// SetOperation serializes op into OpData.
func (e *EditRecord) SetOperation(op Operation) error {
	bytes, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}
	e.OpType = op.Type
	e.OpData = string(bytes)
	return nil
}

// ParseOperation decodes OpData back into an Operation.
func (e *EditRecord) ParseOperation() (Operation, error) {
	var op Operation
	if e.OpData == "" {
		return op, fmt.Errorf("edit record %s has empty operation data", e.ID)
	}
	if err := json.Unmarshal([]byte(e.OpData), &op); err != nil {
		return op, fmt.Errorf("failed to unmarshal operation: %w", err)
	}
	return op, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
