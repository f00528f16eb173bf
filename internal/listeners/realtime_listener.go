package listeners

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/events"
	"freeflow/pkg/constants"
	"freeflow/pkg/eventbus"
)

type UserPublisher interface {
	PublishToUser(userID uuid.UUID, topic, messageType string, payload interface{}) error
}

// RealtimeListener forwards record changes to the owner's websocket clients
// subscribed to records:<resource>.
type RealtimeListener struct {
	hub    UserPublisher
	logger *zap.Logger
}

func NewRealtimeListener(hub UserPublisher, logger *zap.Logger) *RealtimeListener {
	return &RealtimeListener{hub: hub, logger: logger}
}

func (l *RealtimeListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(constants.EventRecordChanged, l.handleRecordChanged)
	l.logger.Info("realtime listener subscribed", zap.String("event", constants.EventRecordChanged))
}

func (l *RealtimeListener) handleRecordChanged(_ context.Context, event eventbus.Event) error {
	e, ok := event.(events.RecordChangedEvent)
	if !ok {
		return nil
	}
	if e.UserID == uuid.Nil {
		return fmt.Errorf("record change on %s without owner", e.Resource)
	}

	payload := dto.RecordChangePayload{
		Resource:   e.Resource,
		Action:     e.Action,
		ID:         e.Record.ID(),
		Record:     e.Record,
		Previous:   e.Previous,
		OccurredAt: e.OccurredAt,
	}
	topic := constants.RecordTopicPrefix + e.Resource
	if err := l.hub.PublishToUser(e.UserID, topic, constants.MessageTypeRecordChanged, payload); err != nil {
		return fmt.Errorf("push %s change: %w", e.Resource, err)
	}
	return nil
}
