package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "freeflow/pkg/errors"
)

// bindObject decodes the request body as a JSON object. Numbers stay
// json.Number so that column coercion sees the literal the client sent.
func bindObject(ctx echo.Context) (map[string]interface{}, error) {
	dec := json.NewDecoder(ctx.Request().Body)
	dec.UseNumber()

	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "request body must be a JSON object", err, nil)
	}
	if body == nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "request body must be a JSON object", apperrors.ErrBadRequest, nil)
	}
	return body, nil
}

// bindAndValidate fills d from the JSON body and runs the echo validator.
func bindAndValidate(ctx echo.Context, d interface{}) error {
	if err := ctx.Bind(d); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil)
	}
	return ctx.Validate(d)
}
