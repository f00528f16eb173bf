package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/repositories"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/metrics"
	"freeflow/pkg/utils"
)

// BaseService carries what every service needs: the caller and the cache.
// cache may be nil, which disables caching.
type BaseService struct {
	cache  repositories.CacheRepositoryInterface
	logger *zap.Logger
}

func NewBaseService(cache repositories.CacheRepositoryInterface, logger *zap.Logger) *BaseService {
	return &BaseService{cache: cache, logger: logger}
}

// CurrentUser returns the authenticated user id or ErrUnauthorized.
func (s *BaseService) CurrentUser(ctx context.Context) (uuid.UUID, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		s.logger.Debug("unauthenticated call", zap.Error(err))
		return uuid.Nil, apperrors.ErrUnauthorized
	}
	return userID, nil
}

func (s *BaseService) CacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheLookupsCounter.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		s.logger.Warn("cache entry is corrupt", zap.String("key", key), zap.Error(err))
		metrics.CacheLookupsCounter.WithLabelValues("miss").Inc()
		return false
	}
	metrics.CacheLookupsCounter.WithLabelValues("hit").Inc()
	return true
}

func (s *BaseService) CacheSet(ctx context.Context, key string, data interface{}, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	serialized, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, serialized, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *BaseService) CacheInvalidate(ctx context.Context, prefix string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DelByPrefix(ctx, prefix); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
	}
}
