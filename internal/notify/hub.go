package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Client is a connected feed consumer, typically a websocket connection
type Client interface {
	WriteJSON(v interface{}) error
}

// Hub broadcasts fired reminders to connected clients
type Hub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[Client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[Client]struct{}),
	}
}

// Register adds a client; the returned func removes it.
func (h *Hub) Register(c Client) func() {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	return func() { h.Unregister(c) }
}

func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Name() string {
	return "websocket"
}

// Send pushes a fired reminder to every client; having no clients is
// not an error.
func (h *Hub) Send(ctx context.Context, n Notification) error {
	h.Broadcast("reminder", "notification", n)
	return nil
}

// Broadcast writes {"type": kind, key: payload} to every client. Clients
// that fail are dropped.
func (h *Hub) Broadcast(kind, key string, payload interface{}) {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg := map[string]interface{}{
		"type": kind,
		key:    payload,
	}

	for _, c := range clients {
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Debug("Dropping websocket client", zap.Error(err))
			h.Unregister(c)
		}
	}
}
