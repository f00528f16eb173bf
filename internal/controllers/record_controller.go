package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/internal/services"
	"freeflow/pkg/api"
	"freeflow/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordController serves the generic record API for every catalog
// resource.
type RecordController struct {
	records services.RecordServiceInterface
	exports services.ExportServiceInterface
	logger  *zap.Logger
}

func NewRecordController(records services.RecordServiceInterface, exports services.ExportServiceInterface, logger *zap.Logger) *RecordController {
	return &RecordController{records: records, exports: exports, logger: logger}
}

func (c *RecordController) Catalog(ctx echo.Context) error {
	return api.SuccessOne(ctx, http.StatusOK, "", c.records.Catalog())
}

func (c *RecordController) List(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.QueryParams())

	res, err := c.records.List(ctx.Request().Context(), ctx.Param("resource"), filter)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	p := res.Pagination
	return api.SuccessList(ctx, "", res.Items, p.TotalCount, p.Page, p.Limit)
}

func (c *RecordController) Get(ctx echo.Context) error {
	rec, err := c.records.Get(ctx.Request().Context(), ctx.Param("resource"), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", rec)
}

func (c *RecordController) Create(ctx echo.Context) error {
	body, err := bindObject(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.records.Create(ctx.Request().Context(), ctx.Param("resource"), body)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "record created", rec)
}

func (c *RecordController) Update(ctx echo.Context) error {
	body, err := bindObject(ctx)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	rec, err := c.records.Update(ctx.Request().Context(), ctx.Param("resource"), ctx.Param("id"), body)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "record updated", rec)
}

func (c *RecordController) Delete(ctx echo.Context) error {
	rec, err := c.records.Delete(ctx.Request().Context(), ctx.Param("resource"), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "record deleted", rec)
}

func (c *RecordController) Restore(ctx echo.Context) error {
	rec, err := c.records.Restore(ctx.Request().Context(), ctx.Param("resource"), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "record restored", rec)
}

func (c *RecordController) Stats(ctx echo.Context) error {
	stats, err := c.records.Stats(ctx.Request().Context(), ctx.Param("resource"), ctx.Param("column"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "", stats)
}

// Export streams the filtered list as an XLSX attachment.
func (c *RecordController) Export(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.QueryParams())

	f, fileName, err := c.exports.Export(ctx.Request().Context(), ctx.Param("resource"), filter)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	defer func() {
		if err := f.Close(); err != nil {
			c.logger.Warn("close workbook", zap.Error(err))
		}
	}()

	ctx.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
