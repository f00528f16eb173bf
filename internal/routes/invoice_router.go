package routes

import (
	"github.com/labstack/echo/v4"

	"freeflow/internal/controllers"
)

func runInvoiceRouter(secure *echo.Group, ctrl *controllers.InvoiceController) {
	invoices := secure.Group("/invoices")
	invoices.POST("", ctrl.Create)
	invoices.GET("/summary", ctrl.Summary)
	invoices.POST("/:id/send", ctrl.Send)
	invoices.POST("/:id/pay", ctrl.MarkPaid)
}

func runNotificationRouter(secure *echo.Group, ctrl *controllers.NotificationController) {
	secure.POST("/notifications/read-all", ctrl.MarkAllRead)
}
