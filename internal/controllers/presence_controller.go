package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/internal/presence"
	"freeflow/pkg/api"
	apperrors "freeflow/pkg/errors"
)

type PresenceController struct {
	rooms  *presence.Registry
	logger *zap.Logger
}

func NewPresenceController(rooms *presence.Registry, logger *zap.Logger) *PresenceController {
	return &PresenceController{rooms: rooms, logger: logger}
}

type roomSnapshot struct {
	Room   string           `json:"room"`
	States []presence.State `json:"states"`
}

// Snapshot returns the awareness states of a room. Unknown rooms are empty.
func (c *PresenceController) Snapshot(ctx echo.Context) error {
	room := ctx.Param("room")
	if !presence.ValidRoomName(room) {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("invalid room name %q", room), c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", roomSnapshot{Room: room, States: c.rooms.Snapshot(room)})
}
