// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/sirupsen/logrus"
)

// outboxSize bounds how far a slow client may fall behind before events
// addressed to it are dropped.
const outboxSize = 32

// client is one live websocket connection. Its id is the connection token
// the engine addresses events to.
type client struct {
	id  uuid.UUID
	out chan game.GameEvent
}

// Hub routes engine events to connections by token.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*client),
		logger:  logger,
	}
}

// register adds a connection with a fresh token.
func (h *Hub) register() *client {
	c := &client{id: uuid.New(), out: make(chan game.GameEvent, outboxSize)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

// unregister removes the connection and closes its outbox.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.out)
}

// Send pushes ev to the connection holding token without blocking. Unknown
// tokens and full outboxes drop the event.
func (h *Hub) Send(token uuid.UUID, ev game.GameEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[token]
	if !ok {
		return
	}
	select {
	case c.out <- ev:
	default:
		h.logger.WithFields(logrus.Fields{"conn": token, "type": ev.Type}).Warn("outbox full, dropped event")
	}
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
