package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/datasubjects/internal/schema"
)

// Static is an immutable in-memory catalog.
//
// Thread-safety: safe for concurrent use; nothing is mutated after NewStatic.
type Static struct {
	tables     []schema.TableDescriptor
	byName     map[string]int
	dimensions []schema.Dimension
}

// NewStatic builds a catalog from descriptors and dimensions.
// Table names must be unique and every identifier must be valid.
func NewStatic(tables []schema.TableDescriptor, dimensions []schema.Dimension) (*Static, error) {
	s := &Static{
		tables:     make([]schema.TableDescriptor, 0, len(tables)),
		byName:     make(map[string]int, len(tables)),
		dimensions: slices.Clone(dimensions),
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byName[t.Name]; dup {
			return nil, fmt.Errorf("table %s registered twice", t.Name)
		}
		s.byName[t.Name] = len(s.tables)
		s.tables = append(s.tables, cloneDescriptor(t))
	}
	for _, d := range dimensions {
		if err := schema.ValidIdentifier(d.OwnerTable()); err != nil {
			return nil, fmt.Errorf("dimension: %w", err)
		}
		if err := schema.ValidIdentifier(d.OwnerColumn()); err != nil {
			return nil, fmt.Errorf("dimension %s: %w", d.OwnerTable(), err)
		}
	}
	return s, nil
}

// MustStatic is NewStatic for fixed test fixtures. Panics on error.
func MustStatic(tables []schema.TableDescriptor, dimensions ...schema.Dimension) *Static {
	s, err := NewStatic(tables, dimensions)
	if err != nil {
		panic(err)
	}
	return s
}

// AllTables returns copies of every descriptor in registration order.
func (s *Static) AllTables(ctx context.Context) ([]schema.TableDescriptor, error) {
	out := make([]schema.TableDescriptor, len(s.tables))
	for i, t := range s.tables {
		out[i] = cloneDescriptor(t)
	}
	return out, nil
}

// Table returns a copy of the named descriptor.
func (s *Static) Table(ctx context.Context, name string) (schema.TableDescriptor, bool, error) {
	i, ok := s.byName[name]
	if !ok {
		return schema.TableDescriptor{}, false, nil
	}
	return cloneDescriptor(s.tables[i]), true, nil
}

// AllDimensions returns every registered dimension.
func (s *Static) AllDimensions(ctx context.Context) ([]schema.Dimension, error) {
	return slices.Clone(s.dimensions), nil
}

func cloneDescriptor(t schema.TableDescriptor) schema.TableDescriptor {
	t.IDColumns = slices.Clone(t.IDColumns)
	t.Bridges = slices.Clone(t.Bridges)
	return t
}
