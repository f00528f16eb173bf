package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row of a catalog resource keyed by column name. Values are
// normalized by the repository: uuids are strings, numerics are
// decimal.Decimal, timestamps are time.Time.
type Record map[string]interface{}

func (r Record) ID() string {
	return r.String("id")
}

func (r Record) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r Record) Decimal(column string) decimal.Decimal {
	switch v := r[column].(type) {
	case decimal.Decimal:
		return v
	case string:
		d, _ := decimal.NewFromString(v)
		return d
	case int64:
		return decimal.NewFromInt(v)
	case int32:
		return decimal.NewFromInt32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

func (r Record) Int(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case decimal.Decimal:
		return v.IntPart()
	}
	return 0
}

func (r Record) Time(column string) (time.Time, bool) {
	t, ok := r[column].(time.Time)
	return t, ok
}

// Without returns a shallow copy lacking the given columns.
func (r Record) Without(columns ...string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, c := range columns {
		delete(out, c)
	}
	return out
}
