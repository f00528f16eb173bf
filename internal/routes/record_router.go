package routes

import (
	"github.com/labstack/echo/v4"

	"freeflow/internal/controllers"
)

func runRecordRouter(secure *echo.Group, ctrl *controllers.RecordController) {
	secure.GET("/resources", ctrl.Catalog)

	records := secure.Group("/records/:resource")
	records.GET("", ctrl.List)
	records.POST("", ctrl.Create)
	records.GET("/export", ctrl.Export)
	records.GET("/stats/:column", ctrl.Stats)
	records.GET("/:id", ctrl.Get)
	records.PATCH("/:id", ctrl.Update)
	records.DELETE("/:id", ctrl.Delete)
	records.POST("/:id/restore", ctrl.Restore)
}
