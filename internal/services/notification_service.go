package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/internal/events"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
)

const resourceNotifications = "notifications"

type NotificationServiceInterface interface {
	Notify(ctx context.Context, userID uuid.UUID, n dto.NotificationDTO) (entities.Record, error)
	MarkAllRead(ctx context.Context) (int, error)
}

// NotificationService stores in-app notifications. Stored rows go through the
// change feed like any other record, so connected clients get them live.
type NotificationService struct {
	*BaseService
	repo    repositories.RecordRepositoryInterface
	changes *recordChanges
	def     *resources.Definition
}

func NewNotificationService(
	registry *resources.Registry,
	repo repositories.RecordRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) (*NotificationService, error) {
	def, err := registry.Get(resourceNotifications)
	if err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}
	base := NewBaseService(cache, logger)
	return &NotificationService{
		BaseService: base,
		repo:        repo,
		changes:     newRecordChanges(base, publisher),
		def:         def,
	}, nil
}

// Notify stores a notification for userID. It does not need an
// authenticated caller.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, n dto.NotificationDTO) (entities.Record, error) {
	if userID == uuid.Nil {
		return nil, apperrors.NewInvalidInputError("notification recipient is required")
	}
	if n.Title == "" {
		return nil, apperrors.NewInvalidInputError("notification title is required")
	}

	values := map[string]interface{}{
		resources.ColumnID: uuid.NewString(),
		s.def.OwnerColumn:  userID.String(),
		"title":            n.Title,
		"message":          n.Message,
		"type":             n.Type,
		"is_read":          false,
	}
	if n.Link != "" {
		values["link"] = n.Link
	}
	if len(n.Data) > 0 {
		data, err := s.def.Coerce("data", n.Data)
		if err != nil {
			return nil, err
		}
		values["data"] = data
	}

	record, err := s.repo.Create(ctx, nil, s.def, values)
	if err != nil {
		s.logger.Error("store notification failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Debug("notification stored", zap.String("user_id", userID.String()), zap.String("type", n.Type))
	s.changes.notify(ctx, s.def.Name, events.ActionInsert, userID, record, nil)
	return record, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context) (int, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	scope := repositories.OwnedBy(userID)
	scope.Where = []types.Condition{{Column: "is_read", Operator: types.OpEq, Value: "false"}}

	updated, err := s.repo.UpdateWhere(ctx, nil, s.def, scope, map[string]interface{}{
		"is_read": true,
		"read_at": s.changes.now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	for _, record := range updated {
		s.changes.notify(ctx, s.def.Name, events.ActionUpdate, userID, record, nil)
	}
	return len(updated), nil
}

var _ NotificationServiceInterface = (*NotificationService)(nil)
