package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freeflow/internal/entities"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
)

// RecordRepositoryInterface is the single data-access layer for every
// catalog resource. Methods that accept a pgx.Tx run inside it when it is
// not nil.
type RecordRepositoryInterface interface {
	List(ctx context.Context, def *resources.Definition, scope Scope, filter types.Filter) ([]entities.Record, uint64, error)
	FindByID(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string, forUpdate bool) (entities.Record, error)
	FindColumn(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id, column string) (interface{}, error)
	FindAll(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope) ([]entities.Record, error)
	Create(ctx context.Context, tx pgx.Tx, def *resources.Definition, values map[string]interface{}) (entities.Record, error)
	Update(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string, values map[string]interface{}) (entities.Record, error)
	UpdateWhere(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, values map[string]interface{}) ([]entities.Record, error)
	Delete(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string) (entities.Record, error)
	Restore(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string) (entities.Record, error)
	CountBy(ctx context.Context, def *resources.Definition, scope Scope, column string) (map[string]int64, error)
	SumBy(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, sumColumn, groupColumn string) (map[string]decimal.Decimal, error)
}

type RecordRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewRecordRepository(storage *pgxpool.Pool, logger *zap.Logger) RecordRepositoryInterface {
	return &RecordRepository{storage: storage, logger: logger}
}

func (r *RecordRepository) getQuerier(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (r *RecordRepository) query(ctx context.Context, q querier, def *resources.Definition, op string, b sqlizer) ([]entities.Record, error) {
	sqlQuery, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s %s: build sql: %w", def.Name, op, err)
	}
	r.logger.Debug("record query", zap.String("resource", def.Name), zap.String("op", op), zap.String("sql", sqlQuery))

	rows, err := q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, translateError(def, op, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, translateError(def, op, err)
	}
	return records, nil
}

func (r *RecordRepository) queryOne(ctx context.Context, q querier, def *resources.Definition, op string, b sqlizer) (entities.Record, error) {
	records, err := r.query(ctx, q, def, op, b)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s %s: %w", def.Name, op, apperrors.ErrNotFound)
	}
	return records[0], nil
}

func (r *RecordRepository) List(ctx context.Context, def *resources.Definition, scope Scope, filter types.Filter) ([]entities.Record, uint64, error) {
	dataBuilder, countBuilder, err := buildListQuery(def, scope, filter)
	if err != nil {
		return nil, 0, err
	}

	countSQL, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s list: build count sql: %w", def.Name, err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, translateError(def, "count", err)
	}
	if total == 0 {
		return []entities.Record{}, 0, nil
	}

	records, err := r.query(ctx, r.storage, def, "list", dataBuilder)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *RecordRepository) FindByID(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string, forUpdate bool) (entities.Record, error) {
	b, err := buildFindQuery(def, scope, id, forUpdate)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, r.getQuerier(tx), def, "find", b)
}

// FindColumn reads a single column of one row, hidden columns included.
func (r *RecordRepository) FindColumn(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id, column string) (interface{}, error) {
	if _, ok := def.Column(column); !ok {
		return nil, fmt.Errorf("%s: column %q is not defined", def.Name, column)
	}
	where, err := scopeConditions(def, scope)
	if err != nil {
		return nil, err
	}
	sqlQuery, args, err := psql.Select(column).From(def.Table).
		Where(where).
		Where(sq.Eq{resources.ColumnID: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s find column: build sql: %w", def.Name, err)
	}

	var value interface{}
	if err := r.getQuerier(tx).QueryRow(ctx, sqlQuery, args...).Scan(&value); err != nil {
		return nil, translateError(def, "find column", err)
	}
	return normalizeValue(value), nil
}

// FindAll returns every row matching scope in the default order, without
// pagination.
func (r *RecordRepository) FindAll(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope) ([]entities.Record, error) {
	b, _, err := buildListQuery(def, scope, types.Filter{})
	if err != nil {
		return nil, err
	}
	records, err := r.query(ctx, r.getQuerier(tx), def, "find all", b)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []entities.Record{}
	}
	return records, nil
}

func (r *RecordRepository) Create(ctx context.Context, tx pgx.Tx, def *resources.Definition, values map[string]interface{}) (entities.Record, error) {
	if len(values) == 0 {
		return nil, apperrors.NewInvalidInputError("%s: nothing to insert", def.Name)
	}
	return r.queryOne(ctx, r.getQuerier(tx), def, "create", buildInsertQuery(def, values))
}

func (r *RecordRepository) Update(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string, values map[string]interface{}) (entities.Record, error) {
	if len(values) == 0 {
		return nil, apperrors.NewInvalidInputError("%s: nothing to update", def.Name)
	}
	b, err := buildUpdateQuery(def, scope, id, values)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, r.getQuerier(tx), def, "update", b)
}

// UpdateWhere updates every row matching scope and returns them.
func (r *RecordRepository) UpdateWhere(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, values map[string]interface{}) ([]entities.Record, error) {
	if len(values) == 0 {
		return nil, apperrors.NewInvalidInputError("%s: nothing to update", def.Name)
	}
	b, err := buildUpdateQuery(def, scope, "", values)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, r.getQuerier(tx), def, "update", b)
}

func (r *RecordRepository) Delete(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string) (entities.Record, error) {
	if def.SoftDelete() {
		b, err := buildSoftDeleteQuery(def, scope, id)
		if err != nil {
			return nil, err
		}
		return r.queryOne(ctx, r.getQuerier(tx), def, "delete", b)
	}
	b, err := buildHardDeleteQuery(def, scope, id)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, r.getQuerier(tx), def, "delete", b)
}

func (r *RecordRepository) Restore(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, id string) (entities.Record, error) {
	if !def.SoftDelete() {
		return nil, apperrors.NewInvalidInputError("%s does not support restore", def.Name)
	}
	b, err := buildRestoreQuery(def, scope, id)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, r.getQuerier(tx), def, "restore", b)
}

func (r *RecordRepository) CountBy(ctx context.Context, def *resources.Definition, scope Scope, column string) (map[string]int64, error) {
	if _, ok := def.Column(column); !ok || def.IsHidden(column) {
		return nil, apperrors.NewInvalidInputError("%s: cannot group by %q", def.Name, column)
	}
	b, err := buildGroupQuery(def, scope, "COUNT(*)", column)
	if err != nil {
		return nil, err
	}
	sqlQuery, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s count by: build sql: %w", def.Name, err)
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, translateError(def, "count by", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			group string
			count int64
		)
		if err := rows.Scan(&group, &count); err != nil {
			return nil, translateError(def, "count by", err)
		}
		out[group] = count
	}
	return out, translateError(def, "count by", rows.Err())
}

// SumBy sums sumColumn per value of groupColumn; an empty groupColumn yields
// a single "total" entry.
func (r *RecordRepository) SumBy(ctx context.Context, tx pgx.Tx, def *resources.Definition, scope Scope, sumColumn, groupColumn string) (map[string]decimal.Decimal, error) {
	col, ok := def.Column(sumColumn)
	if !ok || (col.Type != resources.TypeNumeric && col.Type != resources.TypeInt) {
		return nil, apperrors.NewInvalidInputError("%s: cannot sum %q", def.Name, sumColumn)
	}
	if groupColumn != "" {
		if _, ok := def.Column(groupColumn); !ok || def.IsHidden(groupColumn) {
			return nil, apperrors.NewInvalidInputError("%s: cannot group by %q", def.Name, groupColumn)
		}
	}
	aggregate := fmt.Sprintf("CAST(COALESCE(SUM(%s), 0) AS TEXT)", sumColumn)
	b, err := buildGroupQuery(def, scope, aggregate, groupColumn)
	if err != nil {
		return nil, err
	}
	sqlQuery, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s sum by: build sql: %w", def.Name, err)
	}

	rows, err := r.getQuerier(tx).Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, translateError(def, "sum by", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var group, sum string
		if err := rows.Scan(&group, &sum); err != nil {
			return nil, translateError(def, "sum by", err)
		}
		d, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("%s sum by: parse %q: %w", def.Name, sum, err)
		}
		out[group] = d
	}
	return out, translateError(def, "sum by", rows.Err())
}
