package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/pkg/metrics"
)

// MessageHandler reacts to decoded client frames and to disconnects.
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *Client, msg Inbound)
	HandleDisconnect(c *Client)
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	clients     map[*Client]bool
	userClients map[uuid.UUID][]*Client
	handler     MessageHandler
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[uuid.UUID][]*Client),
		logger:      logger,
	}
}

func (h *Hub) SetHandler(handler MessageHandler) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	h.mu.Unlock()

	metrics.WebsocketConnections.Inc()
	h.logger.Debug("websocket client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID.String()),
	)
}

// Unregister removes the client, closes its send channel and notifies the
// handler. Calling it twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	if !h.remove(client) {
		return
	}
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler != nil {
		handler.HandleDisconnect(client)
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	close(client.Send)

	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}

	metrics.WebsocketConnections.Dec()
	h.logger.Debug("websocket client removed", zap.String("client_id", client.ID))
	return true
}

// Dispatch decodes a raw frame and passes it to the handler.
func (h *Hub) Dispatch(ctx context.Context, c *Client, raw []byte) {
	msg, err := decodeInbound(raw)
	if err != nil || msg.Type == "" {
		c.Reply("error", "", ErrorPayload{Message: "malformed message"})
		return
	}

	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler == nil {
		return
	}
	handler.HandleMessage(ctx, c, msg)
}

// PublishToUser sends to the user's clients subscribed to topic. An empty
// topic reaches all of the user's clients.
func (h *Hub) PublishToUser(userID uuid.UUID, topic, messageType string, payload interface{}) error {
	msg, err := encode(messageType, topic, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.userClients[userID]))
	for _, c := range h.userClients[userID] {
		if topic == "" || c.IsSubscribed(topic) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliverAll(targets, msg)
	return nil
}

// PublishToTopic sends to every client subscribed to topic.
func (h *Hub) PublishToTopic(topic, messageType string, payload interface{}) error {
	msg, err := encode(messageType, topic, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var targets []*Client
	for c := range h.clients {
		if c.IsSubscribed(topic) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliverAll(targets, msg)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

func (h *Hub) deliverAll(targets []*Client, msg []byte) {
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

// deliver never blocks; a client with a full buffer is dropped.
func (h *Hub) deliver(c *Client, msg []byte) {
	h.mu.RLock()
	_, alive := h.clients[c]
	if alive {
		select {
		case c.Send <- msg:
			h.mu.RUnlock()
			return
		default:
		}
	}
	h.mu.RUnlock()

	if alive {
		metrics.WebsocketDroppedCounter.Inc()
		h.logger.Warn("websocket client too slow, dropping", zap.String("client_id", c.ID))
		h.Unregister(c)
	}
}
