package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"freeflow/internal/entities"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	"freeflow/pkg/types"
)

const MaxExportRows = 10000

type ExportServiceInterface interface {
	Export(ctx context.Context, resource string, filter types.Filter) (*excelize.File, string, error)
}

type ExportService struct {
	*BaseService
	registry *resources.Registry
	repo     repositories.RecordRepositoryInterface
	now      func() time.Time
}

func NewExportService(registry *resources.Registry, repo repositories.RecordRepositoryInterface, logger *zap.Logger) *ExportService {
	return &ExportService{
		BaseService: NewBaseService(nil, logger),
		registry:    registry,
		repo:        repo,
		now:         time.Now,
	}
}

// Export renders the caller's filtered rows of a resource as a workbook with
// one sheet and a bold header row. It returns the file and its download name.
func (s *ExportService) Export(ctx context.Context, resource string, filter types.Filter) (*excelize.File, string, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, "", err
	}
	def, err := s.registry.Get(resource)
	if err != nil {
		return nil, "", err
	}

	filter.WithPagination = true
	filter.Limit = MaxExportRows
	filter.Offset = 0
	filter.Page = 1
	rows, total, err := s.repo.List(ctx, def, repositories.OwnedBy(userID), filter)
	if err != nil {
		s.logger.Error("export query failed", zap.String("resource", def.Name), zap.Error(err))
		return nil, "", err
	}
	if total > MaxExportRows {
		s.logger.Warn("export truncated",
			zap.String("resource", def.Name),
			zap.Uint64("total", total),
			zap.Int("exported", len(rows)),
		)
	}

	f, err := buildWorkbook(def.Name, def.VisibleColumns(), rows)
	if err != nil {
		return nil, "", fmt.Errorf("%s export: %w", def.Name, err)
	}
	fileName := fmt.Sprintf("%s_%s.xlsx", def.Name, s.now().Format("2006-01-02"))
	return f, fileName, nil
}

func buildWorkbook(sheet string, columns []string, rows []entities.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, style); err != nil {
		return nil, err
	}

	for i, record := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := make([]interface{}, len(columns))
		for j, c := range columns {
			row[j] = cellValue(record[c])
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.UTC().Format("2006-01-02 15:04:05")
	case decimal.Decimal:
		return val.InexactFloat64()
	case []string:
		return strings.Join(val, ", ")
	case json.RawMessage:
		return string(val)
	case string, bool, int, int64, float64:
		return val
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
	return fmt.Sprint(v)
}

var _ ExportServiceInterface = (*ExportService)(nil)
