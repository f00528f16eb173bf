package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/internal/services"
	"freeflow/pkg/api"
)

type NotificationController struct {
	notifications services.NotificationServiceInterface
	logger        *zap.Logger
}

func NewNotificationController(notifications services.NotificationServiceInterface, logger *zap.Logger) *NotificationController {
	return &NotificationController{notifications: notifications, logger: logger}
}

// MarkAllRead marks every unread notification of the caller as read.
func (c *NotificationController) MarkAllRead(ctx echo.Context) error {
	n, err := c.notifications.MarkAllRead(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "notifications marked as read", map[string]int{"updated": n})
}
