package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/models"
)

const defaultOutboundBuffer = 32

var _ core.Notifier = (*Hub)(nil)

// Hub is the registry of live connections on this instance, keyed by connection id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	buffer  int
	log     *logger.Logger
	metrics *metrics.PipelineMetrics
}

func NewHub(log *logger.Logger, m *metrics.PipelineMetrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		buffer:  defaultOutboundBuffer,
		log:     logger.OrNop(log).With("component", "realtime"),
		metrics: m,
	}
}

// Register adds a new unauthenticated connection.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:       uuid.NewString(),
		Outbound: make(chan []byte, h.buffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

// Authenticate binds a connection to userID. A connection keeps its first user:
// re-authenticating as the same user is a no-op, as another user a conflict.
func (h *Hub) Authenticate(connID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.WrapError(models.ErrInvalidInput, "authenticate connection", errors.New("user id is required"))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return models.WrapError(models.ErrNotFound, "authenticate connection", fmt.Errorf("connection %s", connID))
	}
	switch c.userID {
	case "":
		c.userID = userID
		return nil
	case userID:
		return nil
	default:
		return models.WrapError(models.ErrConflict, "authenticate connection", errors.New("connection already authenticated"))
	}
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	delete(h.clients, connID)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// UserOf reports the user a connection is authenticated as.
func (h *Hub) UserOf(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok || c.userID == "" {
		return "", false
	}
	return c.userID, true
}

// Publish delivers event to this instance's connections authenticated as userID.
// Delivery is best effort; unmatched or unauthenticated connections are skipped.
func (h *Hub) Publish(_ context.Context, userID string, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("event not encodable", "type", event.Type, "error", err)
		return
	}
	h.deliver(userID, string(event.Type), payload)
}

func (h *Hub) deliver(userID, eventType string, payload []byte) int {
	if userID == "" {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, c := range h.clients {
		if c.userID != userID {
			continue
		}
		if c.enqueue(payload) {
			delivered++
			h.metrics.BusEvent(eventType, "delivered")
		} else {
			h.metrics.BusEvent(eventType, "dropped")
			h.log.Debug("event dropped for slow connection", "conn_id", c.ID, "user_id", userID)
		}
	}
	if delivered == 0 {
		h.metrics.BusEvent(eventType, "no_connection")
	}
	return delivered
}
