package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/internal/events"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	"freeflow/pkg/api"
	"freeflow/pkg/constants"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
	"freeflow/pkg/utils"
)

type RecordServiceInterface interface {
	Catalog() []resources.Meta
	List(ctx context.Context, resource string, filter types.Filter) (*dto.ListResult, error)
	Get(ctx context.Context, resource, id string) (entities.Record, error)
	Create(ctx context.Context, resource string, payload map[string]interface{}) (entities.Record, error)
	Update(ctx context.Context, resource, id string, patch map[string]interface{}) (entities.Record, error)
	Delete(ctx context.Context, resource, id string) (entities.Record, error)
	Restore(ctx context.Context, resource, id string) (entities.Record, error)
	Stats(ctx context.Context, resource, column string) (*dto.RecordStats, error)
}

// RecordService is the one generic data action for every catalog resource.
type RecordService struct {
	*BaseService
	registry *resources.Registry
	repo     repositories.RecordRepositoryInterface
	changes  *recordChanges
	listTTL  time.Duration
}

func NewRecordService(
	registry *resources.Registry,
	repo repositories.RecordRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	publisher EventPublisher,
	listTTL time.Duration,
	logger *zap.Logger,
) *RecordService {
	base := NewBaseService(cache, logger)
	return &RecordService{
		BaseService: base,
		registry:    registry,
		repo:        repo,
		changes:     newRecordChanges(base, publisher),
		listTTL:     listTTL,
	}
}

func (s *RecordService) Catalog() []resources.Meta {
	return s.registry.Catalog()
}

func (s *RecordService) resolve(ctx context.Context, resource string) (uuid.UUID, *resources.Definition, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}
	def, err := s.registry.Get(resource)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return userID, def, nil
}

func (s *RecordService) List(ctx context.Context, resource string, filter types.Filter) (*dto.ListResult, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = utils.DefaultLimit
	}
	if filter.Page <= 0 {
		filter.Page = filter.Offset/filter.Limit + 1
	}

	cacheKey := listCacheKey(userID, def.Name, filter)
	var cached dto.ListResult
	if s.CacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	items, total, err := s.repo.List(ctx, def, repositories.OwnedBy(userID), filter)
	if err != nil {
		s.logger.Error("list records failed", zap.String("resource", def.Name), zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []entities.Record{}
	}

	result := &dto.ListResult{
		Items:      items,
		Pagination: api.NewPaginationMeta(total, filter.Page, filter.Limit),
	}
	s.CacheSet(ctx, cacheKey, result, s.listTTL)
	return result, nil
}

func (s *RecordService) Get(ctx context.Context, resource, id string) (entities.Record, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, nil, def, repositories.OwnedBy(userID), id, false)
}

func (s *RecordService) Create(ctx context.Context, resource string, payload map[string]interface{}) (entities.Record, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if def.CreateRoute != "" {
		return nil, apperrors.NewInvalidInputError("%s are created through %s", def.Name, def.CreateRoute)
	}
	values, err := prepareValues(def, payload, true)
	if err != nil {
		return nil, err
	}
	values[resources.ColumnID] = uuid.NewString()
	values[def.OwnerColumn] = userID.String()

	record, err := s.repo.Create(ctx, nil, def, values)
	if err != nil {
		s.logger.Error("create record failed", zap.String("resource", def.Name), zap.Error(err))
		return nil, err
	}
	s.logger.Info("record created", zap.String("resource", def.Name), zap.String("id", record.ID()))
	s.changes.notify(ctx, def.Name, events.ActionInsert, userID, record, nil)
	return record, nil
}

func (s *RecordService) Update(ctx context.Context, resource, id string, patch map[string]interface{}) (entities.Record, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	values, err := prepareValues(def, patch, false)
	if err != nil {
		return nil, err
	}

	scope := repositories.OwnedBy(userID)
	previous, err := s.repo.FindByID(ctx, nil, def, scope, id, false)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.Update(ctx, nil, def, scope, id, values)
	if err != nil {
		return nil, err
	}
	s.changes.notify(ctx, def.Name, events.ActionUpdate, userID, record, previous)
	return record, nil
}

func (s *RecordService) Delete(ctx context.Context, resource, id string) (entities.Record, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	record, err := s.repo.Delete(ctx, nil, def, repositories.OwnedBy(userID), id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record deleted",
		zap.String("resource", def.Name),
		zap.String("id", id),
		zap.Bool("soft", def.SoftDelete()),
	)
	s.changes.notify(ctx, def.Name, events.ActionDelete, userID, record, nil)
	return record, nil
}

func (s *RecordService) Restore(ctx context.Context, resource, id string) (entities.Record, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	record, err := s.repo.Restore(ctx, nil, def, repositories.OwnedBy(userID), id)
	if err != nil {
		return nil, err
	}
	s.changes.notify(ctx, def.Name, events.ActionRestore, userID, record, nil)
	return record, nil
}

func (s *RecordService) Stats(ctx context.Context, resource, column string) (*dto.RecordStats, error) {
	userID, def, err := s.resolve(ctx, resource)
	if err != nil {
		return nil, err
	}
	if !def.IsFilterable(column) {
		return nil, apperrors.NewInvalidInputError("%s: stats are not available for %q", def.Name, column)
	}

	counts, err := s.repo.CountBy(ctx, def, repositories.OwnedBy(userID), column)
	if err != nil {
		return nil, err
	}
	stats := &dto.RecordStats{Column: column, Counts: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewInvalidInputError("invalid id %q", id)
	}
	return nil
}

// prepareValues checks a client payload against the definition and coerces
// every value. Keys are processed in sorted order so errors are stable.
func prepareValues(def *resources.Definition, payload map[string]interface{}, create bool) (map[string]interface{}, error) {
	if !create && len(payload) == 0 {
		return nil, apperrors.NewInvalidInputError("%s: nothing to update", def.Name)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]interface{}, len(payload)+2)
	for _, k := range keys {
		switch {
		case def.IsSystem(k):
			return nil, apperrors.NewInvalidInputError("column %q is managed by the server", k)
		case !def.Writable(k):
			if _, ok := def.Column(k); !ok {
				return nil, apperrors.NewInvalidInputError("%s has no column %q", def.Name, k)
			}
			return nil, apperrors.NewInvalidInputError("column %q is read-only", k)
		}
		v, err := def.Coerce(k, payload[k])
		if err != nil {
			return nil, err
		}
		if def.IsRequired(k) && isBlank(v) {
			return nil, apperrors.NewInvalidInputError("column %q is required", k)
		}
		values[k] = v
	}

	if create {
		for _, req := range def.Required {
			if _, ok := values[req]; !ok {
				return nil, apperrors.NewInvalidInputError("column %q is required", req)
			}
		}
	}
	return values, nil
}

func isBlank(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

func listCacheKey(userID uuid.UUID, resource string, filter types.Filter) string {
	raw, _ := json.Marshal(filter)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf(constants.CacheKeyRecordList, userID, resource, hex.EncodeToString(sum[:8]))
}
