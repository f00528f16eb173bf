package routes

import (
	"github.com/labstack/echo/v4"

	"freeflow/internal/controllers"
)

func runPresenceRouter(secure *echo.Group, ctrl *controllers.PresenceController) {
	secure.GET("/presence/:room", ctrl.Snapshot)
}
