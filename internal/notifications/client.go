package notifications

import (
	"encoding/json"
	"time"

	"readit/internal/middleware"
	"readit/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var pongEvent = mustEncode(Event{Type: EventPong})

// Client is one websocket connection registered with a Hub. Messages for it
// are queued on send and written by a single writer goroutine.
type Client struct {
	// UserID is 0 for anonymous viewers.
	UserID uint

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// Serve runs the connection until the peer goes away, then unregisters the
// client. Clients may send {"type":"ping"} and get a pong event back; every
// other inbound message is ignored.
func (c *Client) Serve() {
	go c.writeLoop()
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	var in struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(message, &in) == nil && in.Type == "ping" {
		c.Deliver(pongEvent)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var (
			kind    = websocket.TextMessage
			payload []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			payload = msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			_ = c.conn.Close()
			return
		}
	}
}

// Deliver queues message without blocking. When the buffer is full the
// message is dropped and a messages_dropped notice is queued in its place
// if there is room, so the client knows to re-fetch.
func (c *Client) Deliver(message []byte) {
	defer func() {
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.send <- message:
		return
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	middleware.Logger.Warn("websocket buffer full, dropped message", "user_id", c.UserID)
	select {
	case c.send <- droppedNotice:
	default:
	}
}
