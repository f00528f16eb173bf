package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
)

func TestExportService_Export(t *testing.T) {
	registry := resources.DefaultRegistry()
	repo := newFakeRecordRepo()
	svc := NewExportService(registry, repo, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC) }

	owner := uuid.New()
	def, err := registry.Get("expenses")
	require.NoError(t, err)
	repo.insert(def, map[string]interface{}{
		"user_id": owner.String(),
		"title":   "Figma seat",
		"amount":  decimal.RequireFromString("15.5"),
	})
	repo.insert(def, map[string]interface{}{
		"user_id": uuid.NewString(),
		"title":   "someone else",
	})

	f, name, err := svc.Export(authed(owner), "expenses", types.Filter{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "expenses_2026-05-02.xlsx", name)

	rows, err := f.GetRows("expenses")
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus the caller's single row")
	assert.Equal(t, def.VisibleColumns(), rows[0][:len(def.VisibleColumns())])

	descIdx := -1
	for i, c := range rows[0] {
		if c == "title" {
			descIdx = i
		}
	}
	require.GreaterOrEqual(t, descIdx, 0)
	assert.Equal(t, "Figma seat", rows[1][descIdx])

	styleID, err := f.GetCellStyle("expenses", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.True(t, style.Font.Bold)
}

func TestExportService_UnknownResource(t *testing.T) {
	svc := NewExportService(resources.DefaultRegistry(), newFakeRecordRepo(), zap.NewNop())

	_, _, err := svc.Export(authed(uuid.New()), "nope", types.Filter{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCellValue(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2026-01-02 03:04:05", cellValue(ts))
	assert.Equal(t, 12.25, cellValue(decimal.RequireFromString("12.25")))
	assert.Equal(t, "a, b", cellValue([]string{"a", "b"}))
	assert.Equal(t, "", cellValue(nil))
}
