// Package notifications delivers realtime score updates to websocket clients,
// fanned out across instances through redis pub/sub.
package notifications

import (
	"context"
	"errors"
	"sync"

	"readit/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per signed in user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrHubFull      = errors.New("server connection limit reached")
	ErrUserConnsMax = errors.New("user connection limit reached")
	ErrHubClosed    = errors.New("hub is shut down")
)

// Hub tracks every connected websocket client. Anonymous clients (userID 0)
// only count toward the total limit.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	perUser map[uint]int
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[uint]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "score hub" }

// Register adds a connection. It fails when the hub or the user is at its
// connection limit.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}
	if userID != 0 && h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserConnsMax
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	if userID != 0 {
		h.perUser[userID]++
	}
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient removes client; unknown clients are ignored.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.UserID != 0 {
		h.perUser[client.UserID]--
		if h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}
	middleware.ActiveWebSockets.Dec()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client without blocking.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Deliver(message)
	}
}

// StartWiring forwards every message published on the broadcast channel to
// the local clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartBroadcastSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown closes every connection with a going-away frame.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for client := range h.clients {
		if client.conn != nil {
			if err := client.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.DebugContext(ctx, "failed to write close frame", "user_id", client.UserID, "error", err)
			}
			_ = client.conn.Close()
		}
		middleware.ActiveWebSockets.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.perUser = make(map[uint]int)
	return nil
}
