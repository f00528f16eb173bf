package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"freeflow/internal/entities"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgInvalidTextRep      = "22P02"
)

// normalizeValue converts driver values into the shapes the API returns.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		dv, err := val.Value()
		if err != nil {
			return nil
		}
		s, ok := dv.(string)
		if !ok {
			return dv
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
		return s
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i := range val {
			out[i] = normalizeValue(val[i])
		}
		return out
	}
	return v
}

func scanRecords(rows pgx.Rows) ([]entities.Record, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []entities.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("rows.Values: %w", err)
		}
		rec := make(entities.Record, len(fields))
		for i, fd := range fields {
			rec[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// translateError maps driver errors onto the application error taxonomy.
func translateError(def *resources.Definition, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", def.Name, op, apperrors.ErrNotFound)
	}
	if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, context.Canceled) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: a record with the same unique values already exists: %w", def.Name, apperrors.ErrConflict)
		case pgForeignKeyViolation:
			return apperrors.NewInvalidInputError("%s: referenced record does not exist or is still in use", def.Name)
		case pgNotNullViolation:
			return apperrors.NewInvalidInputError("%s: column %q must not be empty", def.Name, pgErr.ColumnName)
		case pgCheckViolation:
			return apperrors.NewInvalidInputError("%s: value violates constraint %s", def.Name, pgErr.ConstraintName)
		case pgInvalidTextRep:
			return apperrors.NewInvalidInputError("%s: invalid input value", def.Name)
		}
	}
	return fmt.Errorf("%w: %s %s: %v", apperrors.ErrDatabase, def.Name, op, err)
}
