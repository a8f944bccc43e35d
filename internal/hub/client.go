package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Code edits and whiteboard
	// shapes are larger than chat lines.
	maxMessageSize = 64 * 1024
)

// Session receives a client's inbound frames and its detach event. Room
// actors, the notification hub and tutor sessions all implement it.
type Session interface {
	HandleFrame(c *Client, data []byte)
	Detach(c *Client)
}

// Channel distinguishes the room channel from the code channel on the same
// room actor.
type Channel string

const (
	ChannelRoom          Channel = "room"
	ChannelCode          Channel = "code"
	ChannelTutor         Channel = "tutor"
	ChannelNotifications Channel = "notifications"
)

// Client is one live websocket connection.
type Client struct {
	conn    *websocket.Conn
	session Session
	send    chan []byte

	roomID   string
	userID   string
	username string
	fullName string
	channel  Channel

	// canEditCode is resolved from the participant record at attach time.
	canEditCode bool
}

func NewClient(conn *websocket.Conn, session Session, roomID, userID, username, fullName string, channel Channel) *Client {
	return &Client{
		conn:     conn,
		session:  session,
		send:     make(chan []byte, 256),
		roomID:   roomID,
		userID:   userID,
		username: username,
		fullName: fullName,
		channel:  channel,
	}
}

func (c *Client) RoomID() string   { return c.roomID }
func (c *Client) UserID() string   { return c.userID }
func (c *Client) Username() string { return c.username }

// Run starts the read and write pumps. It returns when the connection is
// gone and the session has been detached.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// Send queues a frame for delivery. A full queue drops the frame; the slow
// client keeps the connection and loses the update.
func (c *Client) Send(message []byte) {
	select {
	case c.send <- message:
	default:
		logrus.WithFields(logrus.Fields{
			"user_id": c.userID,
			"room_id": c.roomID,
		}).Warn("Client send channel full, dropping message")
	}
}

// CloseSend closes the outbound queue, which ends the write pump.
func (c *Client) CloseSend() {
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.session.Detach(c)
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).Debug("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error")
			} else {
				logCtx.Debug("WebSocket closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.session.HandleFrame(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
