package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/pkg/api"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/service"
	"freeflow/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Auth validates the bearer token and stores the caller's claims in the
// request context.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return api.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return api.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			m.logger.Warn("auth: token validation failed", zap.Error(err))
			return api.ErrorResponse(c, err, m.logger)
		}

		ctx := utils.WithClaims(c.Request().Context(), &dto.UserClaims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
		})
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
