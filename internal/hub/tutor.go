package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/service"
)

// Tutor message types. Inbound questions get a typed reply to the asking
// connection only.
const (
	typeExplainConcept   = "explain_concept"
	typeCodeHelp         = "code_help"
	typeAIResponse       = "ai_response"
	typeCodeHelpResponse = "code_help_response"
)

// TutorSession is the Session bound to one AI tutor websocket. One question
// is answered at a time: the read pump blocks on the model call, which also
// serves as natural backpressure.
type TutorSession struct {
	sessionID    string
	tutorService *service.TutorService
}

func NewTutorSession(sessionID string, tutorService *service.TutorService) *TutorSession {
	if tutorService == nil {
		panic("TutorService cannot be nil for TutorSession")
	}
	return &TutorSession{sessionID: sessionID, tutorService: tutorService}
}

type aiResponsePayload struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type codeHelpPayload struct {
	Type      string    `json:"type"`
	Help      string    `json:"help"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleFrame implements Session.
func (t *TutorSession) HandleFrame(c *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Send(marshalError("invalid message format"))
		return
	}
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{"session_id": t.sessionID, "user_id": c.userID})

	switch msg.Type {
	case typeChatMessage, typeExplainConcept:
		if msg.Message == "" {
			c.Send(marshalError("empty message"))
			return
		}
		reply, err := t.tutorService.Chat(ctx, t.sessionID, c.userID, msg.Message)
		if err != nil {
			logCtx.WithError(err).Warn("Tutor chat failed")
			c.Send(marshalError("tutor unavailable"))
			return
		}
		t.send(c, aiResponsePayload{Type: typeAIResponse, Message: reply, Timestamp: time.Now()})

	case typeCodeHelp:
		if msg.Issue == "" && msg.Code == "" {
			c.Send(marshalError("empty code help request"))
			return
		}
		reply, err := t.tutorService.CodeHelp(ctx, t.sessionID, c.userID, msg.Code, msg.Issue)
		if err != nil {
			logCtx.WithError(err).Warn("Tutor code help failed")
			c.Send(marshalError("tutor unavailable"))
			return
		}
		t.send(c, codeHelpPayload{Type: typeCodeHelpResponse, Help: reply, Timestamp: time.Now()})

	default:
		c.Send(marshalError("unknown message type: " + msg.Type))
	}
}

// Detach implements Session. Disconnecting completes the session.
func (t *TutorSession) Detach(c *Client) {
	c.CloseSend()
	if err := t.tutorService.EndSession(context.Background(), t.sessionID); err != nil {
		logrus.WithField("session_id", t.sessionID).WithError(err).Warn("Failed to complete tutor session")
	}
}

func (t *TutorSession) send(c *Client, payload interface{}) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("session_id", t.sessionID).WithError(err).Error("Failed to marshal tutor reply")
		return
	}
	c.Send(bytes)
}
