package resources

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeUUID      ColumnType = "uuid"
	TypeInt       ColumnType = "int"
	TypeNumeric   ColumnType = "numeric"
	TypeBool      ColumnType = "bool"
	TypeTimestamp ColumnType = "timestamp"
	TypeDate      ColumnType = "date"
	TypeJSONB     ColumnType = "jsonb"
	TypeTextArray ColumnType = "text_array"
)

const (
	ColumnID        = "id"
	ColumnUserID    = "user_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
	ColumnDeletedAt = "deleted_at"
)

var systemColumns = []Column{
	{Name: ColumnID, Type: TypeUUID},
	{Name: ColumnUserID, Type: TypeUUID},
	{Name: ColumnCreatedAt, Type: TypeTimestamp},
	{Name: ColumnUpdatedAt, Type: TypeTimestamp},
	{Name: ColumnDeletedAt, Type: TypeTimestamp},
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Definition describes one table served by the generic record API.
type Definition struct {
	Name        string
	Table       string
	Columns     []Column
	Required    []string
	ReadOnly    []string
	Hidden      []string
	Filterable  []string
	Sortable    []string
	Searchable  []string
	DefaultSort string // "-created_at" style
	OwnerColumn string
	// HardDelete removes rows instead of stamping deleted_at.
	HardDelete bool
	// CreateRoute, when set, is the only endpoint allowed to insert rows.
	CreateRoute string

	columns    map[string]Column
	required   map[string]bool
	readOnly   map[string]bool
	hidden     map[string]bool
	filterable map[string]bool
	sortable   map[string]bool
	visible    []string
}

// prepare fills defaults and lookup tables. Every listed column must exist.
func (d *Definition) prepare() error {
	if d.Name == "" || d.Table == "" {
		return fmt.Errorf("resource definition needs a name and a table")
	}
	if !identifierRe.MatchString(d.Table) {
		return fmt.Errorf("resource %s: invalid table name %q", d.Name, d.Table)
	}
	if d.OwnerColumn == "" {
		d.OwnerColumn = ColumnUserID
	}
	if d.DefaultSort == "" {
		d.DefaultSort = "-" + ColumnCreatedAt
	}

	d.columns = make(map[string]Column, len(d.Columns)+len(systemColumns))
	for _, c := range systemColumns {
		d.columns[c.Name] = c
	}
	for _, c := range d.Columns {
		if !identifierRe.MatchString(c.Name) {
			return fmt.Errorf("resource %s: invalid column name %q", d.Name, c.Name)
		}
		if _, dup := d.columns[c.Name]; dup {
			return fmt.Errorf("resource %s: duplicate column %q", d.Name, c.Name)
		}
		d.columns[c.Name] = c
	}

	var err error
	if d.required, err = d.set("required", d.Required); err != nil {
		return err
	}
	if d.readOnly, err = d.set("read-only", d.ReadOnly); err != nil {
		return err
	}
	if d.hidden, err = d.set("hidden", d.Hidden); err != nil {
		return err
	}
	if d.filterable, err = d.set("filterable", append([]string{ColumnID, ColumnCreatedAt, ColumnUpdatedAt}, d.Filterable...)); err != nil {
		return err
	}
	if d.sortable, err = d.set("sortable", append([]string{ColumnCreatedAt, ColumnUpdatedAt}, d.Sortable...)); err != nil {
		return err
	}
	if _, err = d.set("searchable", d.Searchable); err != nil {
		return err
	}
	if !d.sortable[strings.TrimPrefix(d.DefaultSort, "-")] {
		return fmt.Errorf("resource %s: default sort %q is not sortable", d.Name, d.DefaultSort)
	}

	d.visible = d.visible[:0]
	for _, c := range systemColumns {
		if c.Name == ColumnDeletedAt && d.HardDelete {
			continue
		}
		d.visible = append(d.visible, c.Name)
	}
	for _, c := range d.Columns {
		if !d.hidden[c.Name] {
			d.visible = append(d.visible, c.Name)
		}
	}
	return nil
}

func (d *Definition) set(kind string, names []string) (map[string]bool, error) {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := d.columns[n]; !ok {
			return nil, fmt.Errorf("resource %s: %s column %q is not defined", d.Name, kind, n)
		}
		out[n] = true
	}
	return out, nil
}

func (d *Definition) Column(name string) (Column, bool) {
	c, ok := d.columns[name]
	return c, ok
}

func (d *Definition) IsSystem(name string) bool {
	for _, c := range systemColumns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (d *Definition) IsRequired(name string) bool   { return d.required[name] }
func (d *Definition) IsReadOnly(name string) bool   { return d.readOnly[name] }
func (d *Definition) IsHidden(name string) bool     { return d.hidden[name] }
func (d *Definition) IsFilterable(name string) bool { return d.filterable[name] }
func (d *Definition) IsSortable(name string) bool   { return d.sortable[name] }

func (d *Definition) SoftDelete() bool { return !d.HardDelete }

// VisibleColumns are the columns selected and returned to clients.
func (d *Definition) VisibleColumns() []string {
	return append([]string(nil), d.visible...)
}

// Writable reports whether clients may set the column through the generic API.
func (d *Definition) Writable(name string) bool {
	if _, ok := d.columns[name]; !ok {
		return false
	}
	return !d.IsSystem(name) && !d.readOnly[name]
}

// Meta is the catalog entry served by GET /api/v1/resources.
type Meta struct {
	Name        string   `json:"name"`
	Columns     []Column `json:"columns"`
	Required    []string `json:"required"`
	ReadOnly    []string `json:"read_only"`
	Filterable  []string `json:"filterable"`
	Sortable    []string `json:"sortable"`
	Searchable  []string `json:"searchable"`
	DefaultSort string   `json:"default_sort"`
	SoftDelete  bool     `json:"soft_delete"`
	CreateRoute string   `json:"create_route,omitempty"`
}

func (d *Definition) Meta() Meta {
	cols := make([]Column, 0, len(d.visible))
	for _, name := range d.visible {
		cols = append(cols, d.columns[name])
	}
	return Meta{
		Name:        d.Name,
		Columns:     cols,
		Required:    nonNil(d.Required),
		ReadOnly:    nonNil(d.ReadOnly),
		Filterable:  keys(d.filterable),
		Sortable:    keys(d.sortable),
		Searchable:  nonNil(d.Searchable),
		DefaultSort: d.DefaultSort,
		SoftDelete:  d.SoftDelete(),
		CreateRoute: d.CreateRoute,
	}
}
