package utils

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"freeflow/pkg/types"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParseFilterFromQuery turns list query parameters into a types.Filter.
//
//	search=logo
//	filter[status]=active,review        -> status IN (...)
//	filter[budget][gte]=1000            -> budget >= 1000
//	sort=-created_at,title              -> created_at DESC, title ASC
//	page=2&limit=20 | offset=20&limit=20
//	with_deleted=true
func ParseFilterFromQuery(query url.Values) types.Filter {
	filter := types.Filter{
		Limit:          DefaultLimit,
		Page:           1,
		WithPagination: true,
	}

	for key, values := range query {
		if !strings.HasPrefix(key, "filter[") || len(values) == 0 {
			continue
		}
		if cond, ok := parseConditionKey(key, values[0]); ok {
			filter.Conditions = append(filter.Conditions, cond)
		}
	}
	sortConditions(filter.Conditions)

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = min(l, MaxLimit)
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
			filter.Page = o/filter.Limit + 1
		}
	} else if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			filter.Page = p
			filter.Offset = (p - 1) * filter.Limit
		}
	}

	filter.Search = strings.TrimSpace(query.Get("search"))

	if sortParam := query.Get("sort"); sortParam != "" {
		for _, part := range strings.Split(sortParam, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			field := types.SortField{Column: part}
			if strings.HasPrefix(part, "-") {
				field = types.SortField{Column: part[1:], Desc: true}
			} else if strings.HasPrefix(part, "+") {
				field.Column = part[1:]
			}
			if field.Column != "" {
				filter.Sort = append(filter.Sort, field)
			}
		}
	}

	if wd, err := strconv.ParseBool(query.Get("with_deleted")); err == nil {
		filter.IncludeDeleted = wd
	}

	return filter
}

// parseConditionKey understands "filter[col]" and "filter[col][op]".
func parseConditionKey(key, value string) (types.Condition, bool) {
	rest := strings.TrimPrefix(key, "filter[")
	end := strings.Index(rest, "]")
	if end <= 0 {
		return types.Condition{}, false
	}
	cond := types.Condition{Column: rest[:end], Operator: types.OpEq, Value: value}

	rest = rest[end+1:]
	if rest == "" {
		return cond, true
	}
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return types.Condition{}, false
	}
	op := types.Operator(strings.ToLower(rest[1 : len(rest)-1]))
	if !op.Valid() {
		return types.Condition{}, false
	}
	cond.Operator = op
	return cond, true
}

// map iteration order is random; keep conditions deterministic for cache keys
func sortConditions(conds []types.Condition) {
	sort.Slice(conds, func(i, j int) bool {
		if conds[i].Column != conds[j].Column {
			return conds[i].Column < conds[j].Column
		}
		return conds[i].Operator < conds[j].Operator
	})
}
