package utils

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/pkg/contextkeys"
	apperrors "freeflow/pkg/errors"
)

func GetClaimsFromContext(ctx context.Context) (*dto.UserClaims, error) {
	claims, ok := ctx.Value(contextkeys.UserClaimsKey).(*dto.UserClaims)
	if !ok || claims == nil || claims.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}

func GetUserIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	claims, err := GetClaimsFromContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

func WithClaims(ctx context.Context, claims *dto.UserClaims) context.Context {
	return context.WithValue(ctx, contextkeys.UserClaimsKey, claims)
}

// LoggerFromCtx returns the request-scoped logger set by the request logger
// middleware, or fallback.
func LoggerFromCtx(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(contextkeys.LoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}
