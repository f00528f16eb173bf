package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/pkg/api"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/service"
	appwebsocket "freeflow/pkg/websocket"
)

type WebSocketController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// originChecker accepts requests without an Origin header, any origin when
// the list holds "*", and otherwise only listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// ServeWs authenticates the token query parameter and upgrades the
// connection.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return api.ErrorResponse(ctx, apperrors.ErrUnauthorized, nil)
	}

	claims, err := c.jwtService.ValidateToken(token)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	client := appwebsocket.NewClient(c.hub, conn, claims.UserID)
	c.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(context.WithoutCancel(ctx.Request().Context()))

	c.logger.Info("websocket client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", claims.UserID.String()),
	)
	return nil
}
