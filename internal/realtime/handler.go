package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"freeflow/internal/presence"
	"freeflow/internal/resources"
	appwebsocket "freeflow/pkg/websocket"
)

const (
	RecordsTopicPrefix  = "records:"
	PresenceTopicPrefix = "presence:"

	MessageSubscribe    = "subscribe"
	MessageUnsubscribe  = "unsubscribe"
	MessagePing         = "ping"
	MessagePresenceJoin = "presence.join"
	MessagePresenceSet  = "presence.update"
	MessagePresenceExit = "presence.leave"

	ReplySubscribed       = "subscribed"
	ReplyUnsubscribed     = "unsubscribed"
	ReplyPong             = "pong"
	ReplyError            = "error"
	ReplyPresenceSnapshot = "presence.snapshot"
	PushPresenceState     = "presence.state"
	PushPresenceLeft      = "presence.left"
)

type TopicPublisher interface {
	PublishToTopic(topic, messageType string, payload interface{}) error
}

type TopicPayload struct {
	Topic string `json:"topic"`
}

type JoinPayload struct {
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type SnapshotPayload struct {
	Room   string           `json:"room"`
	States []presence.State `json:"states"`
}

// Handler routes client frames to topic subscriptions and presence rooms.
type Handler struct {
	resources *resources.Registry
	presence  *presence.Registry
	logger    *zap.Logger

	mu           sync.Mutex
	participants map[string]map[string]*presence.Participant
}

func NewHandler(registry *resources.Registry, presenceRegistry *presence.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		resources:    registry,
		presence:     presenceRegistry,
		logger:       logger,
		participants: make(map[string]map[string]*presence.Participant),
	}
}

// PresenceBroadcaster turns room events into pushes on the room topic.
func PresenceBroadcaster(publisher TopicPublisher, logger *zap.Logger) presence.BroadcastFunc {
	return func(e presence.Event) {
		messageType := PushPresenceState
		if e.Type == presence.EventRemove {
			messageType = PushPresenceLeft
		}
		if err := publisher.PublishToTopic(PresenceTopicPrefix+e.Room, messageType, e); err != nil {
			logger.Error("presence broadcast failed", zap.String("room", e.Room), zap.Error(err))
		}
	}
}

func (h *Handler) HandleMessage(_ context.Context, c *appwebsocket.Client, msg appwebsocket.Inbound) {
	switch msg.Type {
	case MessageSubscribe:
		if !h.validTopic(msg.Topic) {
			replyError(c, msg.Topic, "unknown topic")
			return
		}
		c.Subscribe(msg.Topic)
		c.Reply(ReplySubscribed, msg.Topic, TopicPayload{Topic: msg.Topic})
	case MessageUnsubscribe:
		c.Unsubscribe(msg.Topic)
		c.Reply(ReplyUnsubscribed, msg.Topic, TopicPayload{Topic: msg.Topic})
	case MessagePing:
		for _, p := range h.clientParticipants(c.ID) {
			p.Heartbeat()
		}
		c.Reply(ReplyPong, "", nil)
	case MessagePresenceJoin:
		h.join(c, msg)
	case MessagePresenceSet:
		h.update(c, msg)
	case MessagePresenceExit:
		h.leave(c, msg.Room)
	default:
		replyError(c, msg.Topic, "unsupported message type")
	}
}

// HandleDisconnect removes the client from every room it joined.
func (h *Handler) HandleDisconnect(c *appwebsocket.Client) {
	h.mu.Lock()
	rooms := h.participants[c.ID]
	delete(h.participants, c.ID)
	h.mu.Unlock()

	for _, p := range rooms {
		p.Leave()
	}
	if len(rooms) > 0 {
		h.logger.Debug("presence left on disconnect", zap.String("client_id", c.ID), zap.Int("rooms", len(rooms)))
	}
}

func (h *Handler) validTopic(topic string) bool {
	switch {
	case strings.HasPrefix(topic, RecordsTopicPrefix):
		return h.resources.Has(strings.TrimPrefix(topic, RecordsTopicPrefix))
	case strings.HasPrefix(topic, PresenceTopicPrefix):
		return presence.ValidRoomName(strings.TrimPrefix(topic, PresenceTopicPrefix))
	}
	return false
}

func (h *Handler) join(c *appwebsocket.Client, msg appwebsocket.Inbound) {
	var payload JoinPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			replyError(c, "", "malformed presence payload")
			return
		}
	}
	if payload.Name == "" {
		payload.Name = c.UserID.String()
	}

	topic := PresenceTopicPrefix + msg.Room
	if !presence.ValidRoomName(msg.Room) {
		replyError(c, topic, "invalid room name")
		return
	}
	// Subscribed first so the joining client sees its own state.
	c.Subscribe(topic)

	h.mu.Lock()
	p, ok := h.participants[c.ID][msg.Room]
	h.mu.Unlock()

	user := presence.User{
		ID:     c.UserID.String(),
		Name:   payload.Name,
		Email:  payload.Email,
		Avatar: payload.Avatar,
	}
	if ok {
		p.SetLocalUser(user)
	} else {
		var err error
		p, err = h.presence.Join(msg.Room, c.ID, user)
		if err != nil {
			c.Unsubscribe(topic)
			replyError(c, topic, err.Error())
			return
		}
		h.mu.Lock()
		if h.participants[c.ID] == nil {
			h.participants[c.ID] = make(map[string]*presence.Participant)
		}
		h.participants[c.ID][msg.Room] = p
		h.mu.Unlock()
	}

	c.Reply(ReplyPresenceSnapshot, topic, SnapshotPayload{Room: msg.Room, States: h.presence.Snapshot(msg.Room)})
}

func (h *Handler) update(c *appwebsocket.Client, msg appwebsocket.Inbound) {
	topic := PresenceTopicPrefix + msg.Room
	p := h.participant(c.ID, msg.Room)
	if p == nil {
		replyError(c, topic, "join the room first")
		return
	}

	var u presence.Update
	if err := json.Unmarshal(msg.Payload, &u); err != nil {
		replyError(c, topic, "malformed presence payload")
		return
	}
	if _, applied := p.Apply(u); !applied {
		h.logger.Debug("stale presence update ignored",
			zap.String("client_id", c.ID),
			zap.String("room", msg.Room),
			zap.Uint64("clock", u.Clock),
		)
	}
}

func (h *Handler) leave(c *appwebsocket.Client, room string) {
	h.mu.Lock()
	p := h.participants[c.ID][room]
	if p != nil {
		delete(h.participants[c.ID], room)
		if len(h.participants[c.ID]) == 0 {
			delete(h.participants, c.ID)
		}
	}
	h.mu.Unlock()

	topic := PresenceTopicPrefix + room
	c.Unsubscribe(topic)
	if p != nil {
		p.Leave()
	}
	c.Reply(ReplyUnsubscribed, topic, TopicPayload{Topic: topic})
}

func (h *Handler) participant(clientID, room string) *presence.Participant {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.participants[clientID][room]
}

func (h *Handler) clientParticipants(clientID string) []*presence.Participant {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*presence.Participant, 0, len(h.participants[clientID]))
	for _, p := range h.participants[clientID] {
		out = append(out, p)
	}
	return out
}

func replyError(c *appwebsocket.Client, topic, message string) {
	c.Reply(ReplyError, topic, appwebsocket.ErrorPayload{Message: message})
}
