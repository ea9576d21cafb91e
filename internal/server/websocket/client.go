package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"casino-engine/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket connection bound to one room. It satisfies engine.Client.
type Client struct {
	sessionID string
	accountID string
	roomID    string
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	logger    zerolog.Logger
}

func newClient(sessionID, accountID, roomID string, conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		sessionID: sessionID,
		accountID: accountID,
		roomID:    roomID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		closed:    make(chan struct{}),
		logger:    logger.With().Str("session_id", sessionID).Str("room_id", roomID).Logger(),
	}
}

func (c *Client) SessionID() string { return c.sessionID }

// Send queues ev for the write pump. It never blocks: a client that cannot keep up is dropped.
func (c *Client) Send(ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Str("event", ev.Event).Msg("Failed to encode event")
		return
	}

	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn().Str("event", ev.Event).Msg("Send buffer full, dropping client")
		c.Close()
	}
}

func (c *Client) reject(action, reason string) {
	c.Send(models.Event{
		Event:  models.EventActionRejected,
		RoomID: c.roomID,
		Data:   models.ActionRejectedEvent{Action: action, Reason: reason},
	})
}

// Close asks the write pump to flush and hang up.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// ReadPump decodes inbound messages until the connection fails. onClose runs once at the end.
func (c *Client) ReadPump(handle func(models.Message), onClose func()) {
	defer func() {
		c.Close()
		onClose()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reject("", "malformed message")
			continue
		}
		handle(msg)
	}
}

// WritePump owns every write on the connection. It exits when the client is closed or the
// room is gone, flushing whatever is already queued first.
func (c *Client) WritePump(roomDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-roomDone:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"))
			c.Close()
			return
		case <-c.closed:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
