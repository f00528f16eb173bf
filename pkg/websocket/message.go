package websocket

import (
	"encoding/json"
	"time"
)

// Envelope is every frame the server sends.
type Envelope struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Inbound is a frame sent by a client. Payload is decoded by the handler
// that owns the message type.
type Inbound struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(messageType, topic string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      messageType,
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}
