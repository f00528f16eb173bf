package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/services"
	"freeflow/pkg/api"
	apperrors "freeflow/pkg/errors"
)

type EscrowController struct {
	escrow services.EscrowServiceInterface
	logger *zap.Logger
}

func NewEscrowController(escrow services.EscrowServiceInterface, logger *zap.Logger) *EscrowController {
	return &EscrowController{escrow: escrow, logger: logger}
}

func (c *EscrowController) CalculateFees(ctx echo.Context) error {
	amount, err := decimal.NewFromString(ctx.QueryParam("amount"))
	if err != nil {
		return api.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "amount must be a number", err,
				map[string]interface{}{"amount": ctx.QueryParam("amount")}),
			c.logger,
		)
	}

	fees, err := c.escrow.CalculateFees(amount, ctx.QueryParam("payment_method"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", fees)
}

func (c *EscrowController) CreateDeposit(ctx echo.Context) error {
	var d dto.CreateEscrowDepositDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.escrow.CreateDeposit(ctx.Request().Context(), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "escrow deposit created", res)
}

func (c *EscrowController) GetDeposit(ctx echo.Context) error {
	res, err := c.escrow.GetDeposit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", res)
}

func (c *EscrowController) UpdateStatus(ctx echo.Context) error {
	var d dto.UpdateEscrowStatusDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.escrow.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "escrow status updated", rec)
}

func (c *EscrowController) ReleaseFunds(ctx echo.Context) error {
	var d dto.ReleaseFundsDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.escrow.ReleaseFunds(ctx.Request().Context(), ctx.Param("id"), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	c.logger.Info("escrow funds released", zap.String("deposit_id", ctx.Param("id")))
	return api.SuccessOne(ctx, http.StatusOK, "funds released", res)
}

func (c *EscrowController) StatusCounts(ctx echo.Context) error {
	counts, err := c.escrow.StatusCounts(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", counts)
}

func (c *EscrowController) TotalValue(ctx echo.Context) error {
	total, err := c.escrow.TotalValue(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", total)
}

func (c *EscrowController) CompleteMilestone(ctx echo.Context) error {
	var d dto.CompleteMilestoneDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.escrow.CompleteMilestone(ctx.Request().Context(), ctx.Param("id"), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "milestone completed", rec)
}

func (c *EscrowController) ApproveMilestone(ctx echo.Context) error {
	var d dto.ApproveMilestoneDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.escrow.ApproveMilestone(ctx.Request().Context(), ctx.Param("id"), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "milestone approved", rec)
}

func (c *EscrowController) RejectMilestone(ctx echo.Context) error {
	var d dto.RejectMilestoneDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.escrow.RejectMilestone(ctx.Request().Context(), ctx.Param("id"), d)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "milestone rejected", rec)
}
