package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "freeflow/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type ErrorBody struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    apperrors.Code `json:"code"`
}

type ListBody[T any] struct {
	Items      []T             `json:"items"`
	Pagination *PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

func NewPaginationMeta(total uint64, page, limit int) *PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}
	return &PaginationMeta{
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		Limit:      limit,
	}
}

// SuccessOne returns a single object.
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T, total uint64, page, limit int) error {
	if list == nil {
		list = make([]T, 0)
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Success: true,
		Message: message,
		Data: ListBody[T]{
			Items:      list,
			Pagination: NewPaginationMeta(total, page, limit),
		},
	})
}

// ErrorResponse writes the failure envelope. Server-side failures are logged
// with the full error; the client only gets the classified message.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	status, code, msg := apperrors.Classify(err)

	if logger != nil {
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", status),
			zap.String("code", string(code)),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}

	return c.JSON(status, ErrorBody{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}
