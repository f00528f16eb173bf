package types

// Operator is the comparison applied by a filter condition.
type Operator string

const (
	OpEq   Operator = "eq"
	OpNeq  Operator = "neq"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpIn   Operator = "in"
	OpIs   Operator = "is"
)

var knownOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true,
	OpLte: true, OpLike: true, OpIn: true, OpIs: true,
}

func (o Operator) Valid() bool { return knownOperators[o] }

// Condition is one filter[column][op]=value pair from the query string.
type Condition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

type SortField struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Filter represents query parameters for filtering and pagination.
type Filter struct {
	Search         string      `json:"search,omitempty"`
	Sort           []SortField `json:"sort,omitempty"`
	Conditions     []Condition `json:"conditions,omitempty"`
	Limit          int         `json:"limit"`
	Offset         int         `json:"offset"`
	Page           int         `json:"page"`
	WithPagination bool        `json:"with_pagination"`
	IncludeDeleted bool        `json:"include_deleted,omitempty"`
}

// http://localhost:8080/api/v1/records/projects?search=brand&sort=-created_at&filter[status]=active,review&filter[budget][gte]=1000&page=2&limit=20
