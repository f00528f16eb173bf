package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/entities"
	"freeflow/internal/events"
	"freeflow/pkg/constants"
	"freeflow/pkg/eventbus"
	"freeflow/pkg/metrics"
)

type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// recordChanges runs the after-write steps shared by every service that
// writes records: drop the owner's cached pages and publish the change.
type recordChanges struct {
	base      *BaseService
	publisher EventPublisher
	now       func() time.Time
}

func newRecordChanges(base *BaseService, publisher EventPublisher) *recordChanges {
	return &recordChanges{base: base, publisher: publisher, now: time.Now}
}

func listCachePrefix(userID uuid.UUID, resource string) string {
	return fmt.Sprintf(constants.CacheKeyRecordListPrefix, userID, resource)
}

func (c *recordChanges) notify(ctx context.Context, resource, action string, userID uuid.UUID, record, previous entities.Record) {
	c.base.CacheInvalidate(ctx, listCachePrefix(userID, resource))
	metrics.RecordWritesCounter.WithLabelValues(resource, action).Inc()

	if c.publisher == nil {
		return
	}
	c.publisher.Publish(ctx, events.RecordChangedEvent{
		Resource:   resource,
		Action:     action,
		UserID:     userID,
		Record:     record,
		Previous:   previous,
		OccurredAt: c.now().UTC(),
	})
	c.base.logger.Debug("record changed",
		zap.String("resource", resource),
		zap.String("action", action),
		zap.String("id", record.ID()),
	)
}
