package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"freeflow/internal/dto"
	"freeflow/internal/entities"
	"freeflow/internal/events"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/eventbus"
	"freeflow/pkg/types"
	"freeflow/pkg/utils"
)

// fakeRecordRepo keeps rows in memory and honours owner scope, Eq scope,
// soft delete and the handful of Where operators the services use.
type fakeRecordRepo struct {
	mu     sync.Mutex
	rows   map[string]map[string]entities.Record
	inTx   []string
	seq    int
	lists  int
	failOn string
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{rows: make(map[string]map[string]entities.Record)}
}

var _ repositories.RecordRepositoryInterface = (*fakeRecordRepo)(nil)

func (f *fakeRecordRepo) table(def *resources.Definition) map[string]entities.Record {
	t, ok := f.rows[def.Table]
	if !ok {
		t = make(map[string]entities.Record)
		f.rows[def.Table] = t
	}
	return t
}

// track records reads and writes made inside a transaction. Callers hold f.mu.
func (f *fakeRecordRepo) track(tx pgx.Tx, op string, def *resources.Definition) {
	if tx != nil {
		f.inTx = append(f.inTx, op+":"+def.Name)
	}
}

func (f *fakeRecordRepo) txOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inTx...)
}

func (f *fakeRecordRepo) insert(def *resources.Definition, rec entities.Record) entities.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	now := time.Date(2026, 1, 1, 0, 0, f.seq, 0, time.UTC)
	row := entities.Record{"created_at": now, "updated_at": now, "deleted_at": nil}
	for k, v := range rec {
		row[k] = v
	}
	if row.ID() == "" {
		row["id"] = uuid.NewString()
	}
	f.table(def)[row.ID()] = row
	return visible(def, row)
}

func visible(def *resources.Definition, row entities.Record) entities.Record {
	out := entities.Record{}
	for _, c := range def.VisibleColumns() {
		out[c] = row[c]
	}
	return out
}

func (f *fakeRecordRepo) matches(def *resources.Definition, row entities.Record, scope repositories.Scope) bool {
	if scope.OwnerID != uuid.Nil && row.String(def.OwnerColumn) != scope.OwnerID.String() {
		return false
	}
	if def.SoftDelete() && !scope.IncludeDeleted && row["deleted_at"] != nil {
		return false
	}
	for k, v := range scope.Eq {
		if row.String(k) != fmt.Sprint(v) {
			return false
		}
	}
	for _, cond := range scope.Where {
		want, err := def.Coerce(cond.Column, cond.Value)
		if err != nil {
			return false
		}
		switch cond.Operator {
		case types.OpEq:
			if row.String(cond.Column) != fmt.Sprint(want) {
				return false
			}
		case types.OpIn:
			found := false
			for _, part := range splitComma(cond.Value) {
				if row.String(cond.Column) == part {
					found = true
				}
			}
			if !found {
				return false
			}
		case types.OpLt:
			got, ok := row.Time(cond.Column)
			if !ok || !got.Before(want.(time.Time)) {
				return false
			}
		default:
			panic("fake repo: unsupported operator " + cond.Operator)
		}
	}
	return true
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func (f *fakeRecordRepo) List(_ context.Context, def *resources.Definition, scope repositories.Scope, filter types.Filter) ([]entities.Record, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.failOn == "list" {
		return nil, 0, fmt.Errorf("%w: boom", apperrors.ErrDatabase)
	}
	if filter.IncludeDeleted {
		scope.IncludeDeleted = true
	}
	var out []entities.Record
	for _, row := range f.table(def) {
		if f.matches(def, row, scope) {
			out = append(out, visible(def, row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].Time("created_at")
		b, _ := out[j].Time("created_at")
		return a.Before(b)
	})
	total := uint64(len(out))
	if filter.WithPagination && filter.Limit > 0 {
		start := min(filter.Offset, len(out))
		end := min(start+filter.Limit, len(out))
		out = out[start:end]
	}
	return out, total, nil
}

func (f *fakeRecordRepo) FindByID(_ context.Context, tx pgx.Tx, def *resources.Definition, scope repositories.Scope, id string, _ bool) (entities.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track(tx, "find", def)
	row, ok := f.table(def)[id]
	if !ok || !f.matches(def, row, scope) {
		return nil, fmt.Errorf("%s find: %w", def.Name, apperrors.ErrNotFound)
	}
	return visible(def, row), nil
}

func (f *fakeRecordRepo) FindColumn(_ context.Context, _ pgx.Tx, def *resources.Definition, scope repositories.Scope, id, column string) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.table(def)[id]
	if !ok || !f.matches(def, row, scope) {
		return nil, fmt.Errorf("%s find column: %w", def.Name, apperrors.ErrNotFound)
	}
	return row[column], nil
}

func (f *fakeRecordRepo) FindAll(_ context.Context, tx pgx.Tx, def *resources.Definition, scope repositories.Scope) ([]entities.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track(tx, "find_all", def)
	out := []entities.Record{}
	for _, row := range f.table(def) {
		if f.matches(def, row, scope) {
			out = append(out, visible(def, row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].Time("created_at")
		b, _ := out[j].Time("created_at")
		return a.Before(b)
	})
	return out, nil
}

// raw returns the stored row including hidden columns.
func (f *fakeRecordRepo) raw(def *resources.Definition, id string) entities.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table(def)[id]
}

func (f *fakeRecordRepo) Create(_ context.Context, _ pgx.Tx, def *resources.Definition, values map[string]interface{}) (entities.Record, error) {
	if f.failOn == "create:"+def.Name {
		return nil, fmt.Errorf("%w: boom", apperrors.ErrDatabase)
	}
	return f.insert(def, entities.Record(values)), nil
}

func (f *fakeRecordRepo) Update(_ context.Context, tx pgx.Tx, def *resources.Definition, scope repositories.Scope, id string, values map[string]interface{}) (entities.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track(tx, "update", def)
	if f.failOn == "update:"+def.Name {
		return nil, fmt.Errorf("%w: boom", apperrors.ErrDatabase)
	}
	row, ok := f.table(def)[id]
	if !ok || !f.matches(def, row, scope) {
		return nil, fmt.Errorf("%s update: %w", def.Name, apperrors.ErrNotFound)
	}
	for k, v := range values {
		row[k] = v
	}
	row["updated_at"] = time.Now().UTC()
	return visible(def, row), nil
}

func (f *fakeRecordRepo) UpdateWhere(_ context.Context, _ pgx.Tx, def *resources.Definition, scope repositories.Scope, values map[string]interface{}) ([]entities.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Record
	for _, row := range f.table(def) {
		if !f.matches(def, row, scope) {
			continue
		}
		for k, v := range values {
			row[k] = v
		}
		out = append(out, visible(def, row))
	}
	return out, nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, _ pgx.Tx, def *resources.Definition, scope repositories.Scope, id string) (entities.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.table(def)[id]
	if !ok || !f.matches(def, row, scope) {
		return nil, fmt.Errorf("%s delete: %w", def.Name, apperrors.ErrNotFound)
	}
	if def.SoftDelete() {
		row["deleted_at"] = time.Now().UTC()
	} else {
		delete(f.table(def), id)
	}
	return visible(def, row), nil
}

func (f *fakeRecordRepo) Restore(_ context.Context, _ pgx.Tx, def *resources.Definition, scope repositories.Scope, id string) (entities.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	scope.IncludeDeleted = true
	row, ok := f.table(def)[id]
	if !ok || !f.matches(def, row, scope) || row["deleted_at"] == nil {
		return nil, fmt.Errorf("%s restore: %w", def.Name, apperrors.ErrNotFound)
	}
	row["deleted_at"] = nil
	return visible(def, row), nil
}

func (f *fakeRecordRepo) CountBy(_ context.Context, def *resources.Definition, scope repositories.Scope, column string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64)
	for _, row := range f.table(def) {
		if f.matches(def, row, scope) {
			key := row.String(column)
			if row[column] == nil {
				key = "null"
			}
			out[key]++
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) SumBy(_ context.Context, tx pgx.Tx, def *resources.Definition, scope repositories.Scope, sumColumn, groupColumn string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track(tx, "sum", def)
	if f.failOn == "sum:"+def.Name {
		return nil, fmt.Errorf("%w: boom", apperrors.ErrDatabase)
	}
	out := make(map[string]decimal.Decimal)
	if groupColumn == "" {
		out["total"] = decimal.Zero
	}
	for _, row := range f.table(def) {
		if !f.matches(def, row, scope) {
			continue
		}
		key := "total"
		if groupColumn != "" {
			key = row.String(groupColumn)
		}
		out[key] = out[key].Add(row.Decimal(sumColumn))
	}
	return out, nil
}

// fakeTx marks repository calls made inside RunInTransaction.
type fakeTx struct {
	pgx.Tx
}

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	return fn(&fakeTx{})
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.RecordChangedEvent
}

func (p *fakePublisher) Publish(_ context.Context, e eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rc, ok := e.(events.RecordChangedEvent); ok {
		p.events = append(p.events, rc)
	}
}

func (p *fakePublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Resource+":"+e.Action)
	}
	return out
}

func authed(userID uuid.UUID) context.Context {
	return utils.WithClaims(context.Background(), &dto.UserClaims{UserID: userID, Email: "owner@example.com", Name: "Owner"})
}
