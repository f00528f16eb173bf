package repositories

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/types"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Scope restricts every statement of the record repository. A zero OwnerID
// means no owner restriction and is only used by background jobs.
type Scope struct {
	OwnerID        uuid.UUID
	Eq             map[string]interface{}
	Where          []types.Condition
	IncludeDeleted bool
}

func OwnedBy(userID uuid.UUID) Scope {
	return Scope{OwnerID: userID}
}

func (s Scope) WithEq(column string, value interface{}) Scope {
	eq := make(map[string]interface{}, len(s.Eq)+1)
	for k, v := range s.Eq {
		eq[k] = v
	}
	eq[column] = value
	s.Eq = eq
	return s
}

func scopeConditions(def *resources.Definition, scope Scope) (sq.And, error) {
	where := sq.And{}
	if scope.OwnerID != uuid.Nil {
		where = append(where, sq.Eq{def.OwnerColumn: scope.OwnerID.String()})
	}
	if def.SoftDelete() && !scope.IncludeDeleted {
		where = append(where, sq.Eq{resources.ColumnDeletedAt: nil})
	}

	keys := make([]string, 0, len(scope.Eq))
	for k := range scope.Eq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := def.Column(k); !ok {
			return nil, fmt.Errorf("%s: scope column %q is not defined", def.Name, k)
		}
		where = append(where, sq.Eq{k: scope.Eq[k]})
	}

	for _, cond := range scope.Where {
		expr, err := conditionExpr(def, cond)
		if err != nil {
			return nil, err
		}
		where = append(where, expr)
	}
	return where, nil
}

// listConditions combines the scope with client filters and search.
// Columns that are not filterable are ignored.
func listConditions(def *resources.Definition, scope Scope, filter types.Filter) (sq.And, error) {
	if filter.IncludeDeleted {
		scope.IncludeDeleted = true
	}
	where, err := scopeConditions(def, scope)
	if err != nil {
		return nil, err
	}

	for _, cond := range filter.Conditions {
		if !def.IsFilterable(cond.Column) {
			continue
		}
		expr, err := conditionExpr(def, cond)
		if err != nil {
			return nil, err
		}
		where = append(where, expr)
	}

	if filter.Search != "" && len(def.Searchable) > 0 {
		pattern := containsPattern(filter.Search)
		search := sq.Or{}
		for _, col := range def.Searchable {
			search = append(search, sq.Expr(col+" ILIKE ?", pattern))
		}
		where = append(where, search)
	}
	return where, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern matches term literally anywhere in the value; backslash is
// the default LIKE escape in Postgres.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func conditionExpr(def *resources.Definition, cond types.Condition) (sq.Sqlizer, error) {
	col, ok := def.Column(cond.Column)
	if !ok {
		return nil, apperrors.NewInvalidInputError("unknown column %q", cond.Column)
	}
	name := col.Name
	raw := strings.TrimSpace(cond.Value)
	isNull := strings.EqualFold(raw, "null")

	switch cond.Operator {
	case types.OpIs:
		switch strings.ToLower(raw) {
		case "null":
			return sq.Eq{name: nil}, nil
		case "not_null", "!null":
			return sq.NotEq{name: nil}, nil
		}
		v, err := def.Coerce(name, raw)
		if err != nil {
			return nil, err
		}
		return sq.Eq{name: v}, nil

	case types.OpEq, types.OpIn, "":
		if isNull && cond.Operator != types.OpIn {
			return sq.Eq{name: nil}, nil
		}
		if col.Type == resources.TypeTextArray {
			v, err := def.Coerce(name, raw)
			if err != nil {
				return nil, err
			}
			return sq.Expr(name+" && ?", v), nil
		}
		if cond.Operator == types.OpIn || strings.Contains(raw, ",") {
			values, err := coerceList(def, name, raw)
			if err != nil {
				return nil, err
			}
			return sq.Eq{name: values}, nil
		}
		v, err := def.Coerce(name, raw)
		if err != nil {
			return nil, err
		}
		return sq.Eq{name: v}, nil

	case types.OpNeq:
		if isNull {
			return sq.NotEq{name: nil}, nil
		}
		v, err := def.Coerce(name, raw)
		if err != nil {
			return nil, err
		}
		return sq.NotEq{name: v}, nil

	case types.OpGt, types.OpGte, types.OpLt, types.OpLte:
		v, err := def.Coerce(name, raw)
		if err != nil {
			return nil, err
		}
		switch cond.Operator {
		case types.OpGt:
			return sq.Gt{name: v}, nil
		case types.OpGte:
			return sq.GtOrEq{name: v}, nil
		case types.OpLt:
			return sq.Lt{name: v}, nil
		default:
			return sq.LtOrEq{name: v}, nil
		}

	case types.OpLike:
		return sq.Expr("CAST("+name+" AS TEXT) ILIKE ?", containsPattern(raw)), nil
	}
	return nil, apperrors.NewInvalidInputError("unsupported operator %q", cond.Operator)
}

func coerceList(def *resources.Definition, column, raw string) ([]interface{}, error) {
	parts := strings.Split(raw, ",")
	out := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := def.Coerce(column, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// orderBy yields requested sortable columns, then the default sort, then id.
func orderBy(def *resources.Definition, requested []types.SortField) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(col string, desc bool) {
		if seen[col] {
			return
		}
		seen[col] = true
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		out = append(out, col+" "+dir)
	}

	for _, s := range requested {
		if def.IsSortable(s.Column) {
			add(s.Column, s.Desc)
		}
	}
	add(strings.TrimPrefix(def.DefaultSort, "-"), strings.HasPrefix(def.DefaultSort, "-"))
	add(resources.ColumnID, false)
	return out
}

func returning(def *resources.Definition) string {
	return "RETURNING " + strings.Join(def.VisibleColumns(), ", ")
}

func buildListQuery(def *resources.Definition, scope Scope, filter types.Filter) (sq.SelectBuilder, sq.SelectBuilder, error) {
	where, err := listConditions(def, scope, filter)
	if err != nil {
		return sq.SelectBuilder{}, sq.SelectBuilder{}, err
	}

	count := psql.Select("COUNT(*)").From(def.Table).Where(where)
	data := psql.Select(def.VisibleColumns()...).From(def.Table).Where(where).OrderBy(orderBy(def, filter.Sort)...)
	if filter.WithPagination && filter.Limit > 0 {
		data = data.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}
	return data, count, nil
}

func buildFindQuery(def *resources.Definition, scope Scope, id string, forUpdate bool) (sq.SelectBuilder, error) {
	where, err := scopeConditions(def, scope)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	b := psql.Select(def.VisibleColumns()...).From(def.Table).
		Where(where).
		Where(sq.Eq{resources.ColumnID: id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	return b, nil
}

func buildInsertQuery(def *resources.Definition, values map[string]interface{}) sq.InsertBuilder {
	return psql.Insert(def.Table).SetMap(values).Suffix(returning(def))
}

func buildUpdateQuery(def *resources.Definition, scope Scope, id string, values map[string]interface{}) (sq.UpdateBuilder, error) {
	where, err := scopeConditions(def, scope)
	if err != nil {
		return sq.UpdateBuilder{}, err
	}
	b := psql.Update(def.Table).
		SetMap(values).
		Set(resources.ColumnUpdatedAt, sq.Expr("NOW()")).
		Where(where).
		Suffix(returning(def))
	if id != "" {
		b = b.Where(sq.Eq{resources.ColumnID: id})
	}
	return b, nil
}

func buildSoftDeleteQuery(def *resources.Definition, scope Scope, id string) (sq.UpdateBuilder, error) {
	scope.IncludeDeleted = false
	where, err := scopeConditions(def, scope)
	if err != nil {
		return sq.UpdateBuilder{}, err
	}
	return psql.Update(def.Table).
		Set(resources.ColumnDeletedAt, sq.Expr("NOW()")).
		Set(resources.ColumnUpdatedAt, sq.Expr("NOW()")).
		Where(where).
		Where(sq.Eq{resources.ColumnID: id}).
		Suffix(returning(def)), nil
}

func buildHardDeleteQuery(def *resources.Definition, scope Scope, id string) (sq.DeleteBuilder, error) {
	where, err := scopeConditions(def, scope)
	if err != nil {
		return sq.DeleteBuilder{}, err
	}
	return psql.Delete(def.Table).
		Where(where).
		Where(sq.Eq{resources.ColumnID: id}).
		Suffix(returning(def)), nil
}

func buildRestoreQuery(def *resources.Definition, scope Scope, id string) (sq.UpdateBuilder, error) {
	scope.IncludeDeleted = true
	where, err := scopeConditions(def, scope)
	if err != nil {
		return sq.UpdateBuilder{}, err
	}
	return psql.Update(def.Table).
		Set(resources.ColumnDeletedAt, nil).
		Set(resources.ColumnUpdatedAt, sq.Expr("NOW()")).
		Where(where).
		Where(sq.Eq{resources.ColumnID: id}).
		Where(sq.NotEq{resources.ColumnDeletedAt: nil}).
		Suffix(returning(def)), nil
}

// buildGroupQuery selects (group, aggregate) pairs. Groups are rendered as
// text with NULL reported as "null".
func buildGroupQuery(def *resources.Definition, scope Scope, aggregate, groupColumn string) (sq.SelectBuilder, error) {
	where, err := scopeConditions(def, scope)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	if groupColumn == "" {
		return psql.Select("'total'", aggregate).From(def.Table).Where(where), nil
	}
	group := fmt.Sprintf("COALESCE(CAST(%s AS TEXT), 'null')", groupColumn)
	return psql.Select(group, aggregate).
		From(def.Table).
		Where(where).
		GroupBy(groupColumn).
		OrderBy(groupColumn), nil
}
