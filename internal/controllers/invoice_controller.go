package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/services"
	"freeflow/pkg/api"
)

type InvoiceController struct {
	invoices services.InvoiceServiceInterface
	logger   *zap.Logger
}

func NewInvoiceController(invoices services.InvoiceServiceInterface, logger *zap.Logger) *InvoiceController {
	return &InvoiceController{invoices: invoices, logger: logger}
}

func (c *InvoiceController) Create(ctx echo.Context) error {
	var d dto.CreateInvoiceDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.invoices.Create(ctx.Request().Context(), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "invoice created", rec)
}

func (c *InvoiceController) Send(ctx echo.Context) error {
	rec, err := c.invoices.Send(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "invoice sent", rec)
}

func (c *InvoiceController) MarkPaid(ctx echo.Context) error {
	rec, err := c.invoices.MarkPaid(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "invoice paid", rec)
}

func (c *InvoiceController) Summary(ctx echo.Context) error {
	summary, err := c.invoices.Summary(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", summary)
}
