package dto

import (
	"freeflow/internal/entities"
	"freeflow/pkg/api"
)

type ListResult struct {
	Items      []entities.Record   `json:"items"`
	Pagination *api.PaginationMeta `json:"pagination"`
}

// RecordStats is returned by GET /records/:resource/stats/:column.
type RecordStats struct {
	Column string           `json:"column"`
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}
