package events

import (
	"time"

	"github.com/google/uuid"

	"freeflow/internal/entities"
	"freeflow/pkg/constants"
)

const (
	ActionInsert  = "INSERT"
	ActionUpdate  = "UPDATE"
	ActionDelete  = "DELETE"
	ActionRestore = "RESTORE"
)

// RecordChangedEvent is published after every successful record write.
// Previous holds the row before an UPDATE when the writer loaded it.
type RecordChangedEvent struct {
	Resource   string
	Action     string
	UserID     uuid.UUID
	Record     entities.Record
	Previous   entities.Record
	OccurredAt time.Time
}

func (e RecordChangedEvent) Name() string {
	return constants.EventRecordChanged
}
