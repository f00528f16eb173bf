package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "freeflow/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/projects", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSuccessList_EmptyListIsArray(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, SuccessList[string](c, "ok", nil, 0, 1, 20))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{}, data["items"])
	pagination := data["pagination"].(map[string]any)
	assert.EqualValues(t, 0, pagination["total_pages"])
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(41, 2, 20)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 2, meta.Page)

	assert.Equal(t, 0, NewPaginationMeta(10, 1, 0).TotalPages)
}

func TestErrorResponse(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, ErrorResponse(c, fmt.Errorf("projects: %w", apperrors.ErrNotFound), zap.NewNop()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apperrors.CodeNotFound, body.Code)
	assert.NotEmpty(t, body.Error)
}
