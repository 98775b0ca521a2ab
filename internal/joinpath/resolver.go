package joinpath

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/datasubjects/internal/schema"
)

// Resolver computes join paths against one catalog snapshot.
//
// Not safe for concurrent use; resolve every table up front when results
// are consumed by multiple goroutines.
type Resolver struct {
	catalog schema.TableCatalog
	anchors schema.Anchors

	resolved map[string]schema.JoinPath
	failed   map[string]error
}

// NewResolver creates a Resolver over the given catalog and anchors.
func NewResolver(catalog schema.TableCatalog, anchors schema.Anchors) *Resolver {
	return &Resolver{
		catalog:  catalog,
		anchors:  anchors,
		resolved: make(map[string]schema.JoinPath),
		failed:   make(map[string]error),
	}
}

// Resolve returns the join path connecting table to an anchor.
//
// Returns an *UnresolvableError when no rule applies and a *CycleError when
// the bridge declarations loop back on themselves. Catalog errors are
// returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, table schema.TableDescriptor) (schema.JoinPath, error) {
	return r.resolve(ctx, table, nil)
}

func (r *Resolver) resolve(ctx context.Context, table schema.TableDescriptor, stack []string) (schema.JoinPath, error) {
	if p, ok := r.resolved[table.Name]; ok {
		return p, nil
	}
	if err, ok := r.failed[table.Name]; ok {
		return schema.JoinPath{}, err
	}
	if slices.Contains(stack, table.Name) {
		cycle := append(slices.Clone(stack), table.Name)
		return schema.JoinPath{}, &CycleError{Path: cycle}
	}

	p, err := r.resolveRules(ctx, table, append(slices.Clone(stack), table.Name))
	if err != nil {
		if IsUnresolvable(err) {
			r.failed[table.Name] = err
		}
		return schema.JoinPath{}, err
	}

	r.resolved[table.Name] = p
	return p, nil
}

func (r *Resolver) resolveRules(ctx context.Context, table schema.TableDescriptor, stack []string) (schema.JoinPath, error) {
	// Both anchors carry idsite/idvisit themselves, whatever join columns
	// they declare.
	if r.anchors.IsAnchor(table.Name) {
		return schema.JoinPath{Base: table.Name, Selectable: table.Name}, nil
	}
	if table.VisitJoinColumn != "" {
		return direct(table, table.VisitJoinColumn, r.anchors.Visit), nil
	}
	if table.ActionJoinColumn != "" {
		return direct(table, table.ActionJoinColumn, r.anchors.ActionLink), nil
	}

	var tried []string
	for _, b := range table.Bridges {
		bridge, ok, err := r.catalog.Table(ctx, b.Table)
		if err != nil {
			return schema.JoinPath{}, fmt.Errorf("lookup bridge %s of %s: %w", b.Table, table.Name, err)
		}
		tried = append(tried, b.Table)
		if !ok {
			continue
		}

		bp, err := r.resolve(ctx, bridge, stack)
		if IsUnresolvable(err) {
			continue
		}
		if err != nil {
			return schema.JoinPath{}, err
		}

		steps := make([]schema.JoinStep, 0, len(bp.Steps)+1)
		steps = append(steps, schema.JoinStep{
			Table:     bridge.Name,
			Condition: condition(table.Name, b.Column, bridge.Name, b.Column),
		})
		steps = append(steps, bp.Steps...)

		return schema.JoinPath{
			Base:       table.Name,
			Steps:      steps,
			Selectable: bp.Selectable,
		}, nil
	}

	return schema.JoinPath{}, &UnresolvableError{Table: table.Name, Tried: tried}
}

// direct builds the one-step path to an anchor.
func direct(table schema.TableDescriptor, column string, anchor schema.AnchorTable) schema.JoinPath {
	return schema.JoinPath{
		Base: table.Name,
		Steps: []schema.JoinStep{{
			Table:     anchor.Table,
			Condition: condition(table.Name, column, anchor.Table, anchor.IDColumn),
		}},
		Selectable: anchor.Table,
	}
}

func condition(leftTable, leftColumn, rightTable, rightColumn string) string {
	return fmt.Sprintf("%s.%s = %s.%s", leftTable, leftColumn, rightTable, rightColumn)
}
