package dto

import (
	"time"

	"freeflow/internal/entities"
)

// RecordChangePayload is the payload of a record.changed websocket frame.
type RecordChangePayload struct {
	Resource   string          `json:"resource"`
	Action     string          `json:"action"`
	ID         string          `json:"id"`
	Record     entities.Record `json:"record"`
	Previous   entities.Record `json:"previous,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
