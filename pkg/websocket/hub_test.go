package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	messages     []Inbound
	disconnected []*Client
}

func (r *recordingHandler) HandleMessage(_ context.Context, _ *Client, msg Inbound) {
	r.messages = append(r.messages, msg)
}

func (r *recordingHandler) HandleDisconnect(c *Client) {
	r.disconnected = append(r.disconnected, c)
}

func readEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	default:
		t.Fatal("expected a queued message")
		return Envelope{}
	}
}

func TestHub_PublishToUserRespectsTopics(t *testing.T) {
	hub := NewHub(zap.NewNop())
	owner := uuid.New()

	subscribed := NewClient(hub, nil, owner)
	other := NewClient(hub, nil, owner)
	stranger := NewClient(hub, nil, uuid.New())
	for _, c := range []*Client{subscribed, other, stranger} {
		hub.Register(c)
	}
	subscribed.Subscribe("records:projects")
	stranger.Subscribe("records:projects")

	require.NoError(t, hub.PublishToUser(owner, "records:projects", "record.changed", map[string]string{"id": "1"}))

	env := readEnvelope(t, subscribed)
	assert.Equal(t, "record.changed", env.Type)
	assert.Equal(t, "records:projects", env.Topic)
	assert.Empty(t, other.Send)
	assert.Empty(t, stranger.Send)
}

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := NewClient(hub, nil, uuid.New())
	b := NewClient(hub, nil, uuid.New())
	hub.Register(a)
	hub.Register(b)
	a.Subscribe("presence:doc-1")
	b.Subscribe("presence:doc-1")
	b.Unsubscribe("presence:doc-1")

	require.NoError(t, hub.PublishToTopic("presence:doc-1", "presence.state", nil))

	assert.Len(t, a.Send, 1)
	assert.Empty(t, b.Send)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	handler := &recordingHandler{}
	hub.SetHandler(handler)
	userID := uuid.New()
	c := NewClient(hub, nil, userID)
	hub.Register(c)

	for i := 0; i < sendBufferSize+1; i++ {
		require.NoError(t, hub.PublishToUser(userID, "", "tick", i))
	}

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, []*Client{c}, handler.disconnected)

	// further publishes to a dropped client are harmless
	assert.NoError(t, hub.PublishToUser(userID, "", "tick", 0))
}

func TestHub_DispatchRejectsMalformedFrames(t *testing.T) {
	hub := NewHub(zap.NewNop())
	handler := &recordingHandler{}
	hub.SetHandler(handler)
	c := NewClient(hub, nil, uuid.New())
	hub.Register(c)

	hub.Dispatch(context.Background(), c, []byte("{not json"))
	env := readEnvelope(t, c)
	assert.Equal(t, "error", env.Type)

	hub.Dispatch(context.Background(), c, []byte(`{"type":"subscribe","topic":"records:tasks"}`))
	require.Len(t, handler.messages, 1)
	assert.Equal(t, "records:tasks", handler.messages[0].Topic)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	handler := &recordingHandler{}
	hub.SetHandler(handler)
	c := NewClient(hub, nil, uuid.New())
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c)

	assert.Len(t, handler.disconnected, 1)
	_, open := <-c.Send
	assert.False(t, open)
}
