package hub

import (
	"encoding/json"
	"time"

	"collaborative-classroom/internal/domain"
)

// Inbound message types.
const (
	typeChatMessage     = "chat_message"
	typeCursorPosition  = "cursor_position"
	typeSelectionChange = "selection_change"
	typeWhiteboard      = "whiteboard_update"
	typeWebRTCSignal    = "webrtc_signal"
	typeScreenShare     = "screen_share"
	typeCodeChange      = "code_change"
	typeCodeExecution   = "code_execution"
	typeMarkRead        = "mark_read"
)

// Outbound-only message types.
const (
	typeUserJoined      = "user_joined"
	typeUserLeft        = "user_left"
	typeCodeState       = "code_state"
	typeExecutionResult = "execution_result"
	typeNotification    = "notification"
	typeUnreadCount     = "unread_count_update"
	typeError           = "error"
)

// envelope is the decoded form of any inbound frame. Only the fields for
// the declared type are meaningful; the rest stay zero.
type envelope struct {
	Type string `json:"type"`

	// chat_message
	Message string `json:"message,omitempty"`

	// cursor_position / selection_change: opaque editor coordinates plus
	// the line/column pair code editors send alongside them.
	Position  json.RawMessage `json:"position,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
	Line      *int            `json:"line,omitempty"`
	Column    *int            `json:"column,omitempty"`

	// whiteboard_update: shape id -> shape data.
	Update map[string]json.RawMessage `json:"update,omitempty"`

	// webrtc_signal / screen_share
	Signal     json.RawMessage `json:"signal,omitempty"`
	Action     string          `json:"action,omitempty"`
	TargetUser string          `json:"target_user,omitempty"`

	// code_change
	Operation domain.Operation `json:"operation,omitempty"`
	Version   int              `json:"version,omitempty"`

	// code_execution / code_help
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
	Issue    string `json:"issue,omitempty"`

	// mark_read
	NotificationID string `json:"notification_id,omitempty"`
}

// outbound frames carry the sender's identity so clients can attribute
// remote events without a second lookup.

type chatPayload struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type cursorPayload struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	Username  string          `json:"username"`
	Position  json.RawMessage `json:"position,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
	Line      *int            `json:"line,omitempty"`
	Column    *int            `json:"column,omitempty"`
}

type whiteboardPayload struct {
	Type   string                     `json:"type"`
	UserID string                     `json:"user_id"`
	Update map[string]json.RawMessage `json:"update"`
}

type signalPayload struct {
	Type   string          `json:"type"`
	UserID string          `json:"user_id"`
	Signal json.RawMessage `json:"signal,omitempty"`
	Action string          `json:"action,omitempty"`
}

type codeChangePayload struct {
	Type      string           `json:"type"`
	UserID    string           `json:"user_id"`
	Username  string           `json:"username"`
	Operation domain.Operation `json:"operation"`
	Version   int              `json:"version"`
}

type codeStatePayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Version int    `json:"version"`
}

type executionResultPayload struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Success  bool   `json:"success"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	TimeMS   int64  `json:"execution_time_ms"`
	MemoryKB int64  `json:"memory_used_kb,omitempty"`
}

type presencePayload struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

type unreadCountPayload struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func marshalError(message string) []byte {
	bytes, _ := json.Marshal(errorPayload{Type: typeError, Message: message})
	return bytes
}
