package http

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/metrics"
)

// Hub maps participant ids to live connections and delivers session events.
// It implements app.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	metrics.Connections.Inc()
	h.logger.Debug("client connected", zap.String("client_id", c.ID))
}

// Unregister removes the client and closes its send queue, which stops the write pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	close(c.send)
	h.mu.Unlock()
	metrics.Connections.Dec()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// Notify encodes the event once and queues it for every connected recipient.
// It never blocks: a full queue drops the message.
func (h *Hub) Notify(to app.Audience, event string, payload any) {
	data, err := json.Marshal(outboundMessage{Type: event, Payload: payload})
	if err != nil {
		h.logger.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range to.Recipients {
		if c, ok := h.clients[id]; ok {
			h.enqueueLocked(c, event, data)
		}
	}
}

// Reply sends a message to a single connection.
func (h *Hub) Reply(c *Client, msg outboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode reply", zap.String("event", msg.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.ID]; ok {
		h.enqueueLocked(c, msg.Type, data)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) enqueueLocked(c *Client, event string, data []byte) {
	select {
	case c.send <- data:
	default:
		metrics.DroppedMessages.Inc()
		h.logger.Warn("client send buffer full, dropping message",
			zap.String("client_id", c.ID),
			zap.String("event", event),
		)
	}
}
