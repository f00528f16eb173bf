package resources

import (
	"fmt"
	"net/http"
	"sort"

	apperrors "freeflow/pkg/errors"
)

// Registry holds resource definitions by name.
type Registry struct {
	defs  map[string]*Definition
	names []string
}

func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(d *Definition) error {
	if err := d.prepare(); err != nil {
		return err
	}
	if _, exists := r.defs[d.Name]; exists {
		return fmt.Errorf("resource %s registered twice", d.Name)
	}
	r.defs[d.Name] = d
	r.names = append(r.names, d.Name)
	sort.Strings(r.names)
	return nil
}

func (r *Registry) Get(name string) (*Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, apperrors.NewHttpError(http.StatusNotFound, fmt.Sprintf("unknown resource %q", name), apperrors.ErrNotFound, nil)
	}
	return d, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Catalog() []Meta {
	out := make([]Meta, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.defs[name].Meta())
	}
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
