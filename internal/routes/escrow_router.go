package routes

import (
	"github.com/labstack/echo/v4"

	"freeflow/internal/controllers"
)

func runEscrowRouter(secure *echo.Group, ctrl *controllers.EscrowController) {
	escrow := secure.Group("/escrow")
	escrow.GET("/fees/calculate", ctrl.CalculateFees)

	escrow.POST("/deposits", ctrl.CreateDeposit)
	escrow.GET("/deposits/status-counts", ctrl.StatusCounts)
	escrow.GET("/deposits/total", ctrl.TotalValue)
	escrow.GET("/deposits/:id", ctrl.GetDeposit)
	escrow.PATCH("/deposits/:id/status", ctrl.UpdateStatus)
	escrow.POST("/deposits/:id/release", ctrl.ReleaseFunds)

	escrow.POST("/milestones/:id/complete", ctrl.CompleteMilestone)
	escrow.POST("/milestones/:id/approve", ctrl.ApproveMilestone)
	escrow.POST("/milestones/:id/reject", ctrl.RejectMilestone)
}
