package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CheckFunc reports whether one dependency is reachable.
type CheckFunc func(ctx context.Context) error

type HealthController struct {
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthController(checks map[string]CheckFunc, logger *zap.Logger) *HealthController {
	return &HealthController{checks: checks, timeout: 2 * time.Second, logger: logger}
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (c *HealthController) Health(ctx echo.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	body := healthBody{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := c.checks[name](reqCtx); err != nil {
			c.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			body.Checks[name] = "down"
			body.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Checks[name] = "up"
	}
	return ctx.JSON(status, body)
}
