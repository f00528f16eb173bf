package resources

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "freeflow/pkg/errors"
)

const dateLayout = "2006-01-02"

// Coerce converts a decoded JSON or query-string value into the Go value
// stored for the column. nil passes through.
func (d *Definition) Coerce(column string, value any) (any, error) {
	col, ok := d.columns[column]
	if !ok {
		return nil, apperrors.NewInvalidInputError("unknown column %q", column)
	}
	if value == nil {
		return nil, nil
	}
	out, err := coerce(col.Type, value)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("column %q: %v", column, err)
	}
	return out, nil
}

func coerce(t ColumnType, value any) (any, error) {
	switch t {
	case TypeText:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
	case TypeUUID:
		switch v := value.(type) {
		case string:
			id, err := uuid.Parse(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid uuid")
			}
			return id.String(), nil
		case uuid.UUID:
			return v.String(), nil
		}
	case TypeInt:
		return toInt(value)
	case TypeNumeric:
		return toDecimal(value)
	case TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid boolean")
			}
			return b, nil
		}
	case TypeTimestamp:
		return toTime(value, false)
	case TypeDate:
		return toTime(value, true)
	case TypeJSONB:
		if s, ok := value.(string); ok {
			if !json.Valid([]byte(s)) {
				return nil, fmt.Errorf("invalid json")
			}
			return json.RawMessage(s), nil
		}
		return value, nil
	case TypeTextArray:
		return toStrings(value)
	}
	return nil, fmt.Errorf("expected %s, got %T", t, value)
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("expected an integer")
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer")
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected an integer, got %T", value)
}

func toDecimal(value any) (any, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		dec, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected a number")
		}
		return dec, nil
	}
	return nil, fmt.Errorf("expected a number, got %T", value)
}

func toTime(value any, dateOnly bool) (any, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case string:
		s := strings.TrimSpace(v)
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			parsed, err = time.Parse(dateLayout, s)
		}
		if err != nil {
			return nil, fmt.Errorf("expected RFC3339 time or YYYY-MM-DD date")
		}
		t = parsed
	default:
		return nil, fmt.Errorf("expected a time, got %T", value)
	}
	if dateOnly {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t, nil
}

func toStrings(value any) (any, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", value)
}
