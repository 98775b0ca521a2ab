package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/datasubjects/internal/schema"
)

// ErrCycle is wrapped by every CycleError.
var ErrCycle = errors.New("bridge relations form a cycle")

// CycleError lists the strongly connected groups of tables that could not
// be ordered.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = "[" + strings.Join(c, ", ") + "]"
	}
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(parts, " "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// Plan is a processing order over every registered table.
type Plan struct {
	Tables []schema.TableDescriptor

	// Cycles holds the groups of tables whose bridges loop. Their tables
	// are still present in Tables, after every orderable non-anchor table.
	Cycles [][]string
}

// Err returns a *CycleError when the plan contains cycles.
func (p Plan) Err() error {
	if len(p.Cycles) == 0 {
		return nil
	}
	return &CycleError{Cycles: p.Cycles}
}

// Names returns the table names in processing order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		names[i] = t.Name
	}
	return names
}

// Reversed returns the tables in reverse processing order.
func (p Plan) Reversed() []schema.TableDescriptor {
	out := make([]schema.TableDescriptor, len(p.Tables))
	for i, t := range p.Tables {
		out[len(p.Tables)-1-i] = t
	}
	return out
}

// Order computes the processing plan for tables.
//
// Order is deterministic: the same descriptor set always yields the same
// plan regardless of input order.
func Order(tables []schema.TableDescriptor, anchors schema.Anchors) Plan {
	byName := make(map[string]schema.TableDescriptor, len(tables))
	var link, visit *schema.TableDescriptor
	for i := range tables {
		t := tables[i]
		switch t.Name {
		case anchors.Visit.Table:
			visit = &t
		case anchors.ActionLink.Table:
			link = &t
		default:
			byName[t.Name] = t
		}
	}

	graph := buildGraph(byName)

	indegree := make(map[string]int, len(graph))
	for node := range graph {
		if _, ok := indegree[node]; !ok {
			indegree[node] = 0
		}
		for _, next := range graph[node] {
			indegree[next]++
		}
	}

	var ready []string
	for node, deg := range indegree {
		if deg == 0 {
			ready = append(ready, node)
		}
	}

	var plan Plan
	for len(ready) > 0 {
		sortReady(ready, byName)
		node := ready[0]
		ready = ready[1:]

		plan.Tables = append(plan.Tables, byName[node])
		for _, next := range graph[node] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(plan.Tables) < len(byName) {
		emitted := make(map[string]bool, len(plan.Tables))
		for _, t := range plan.Tables {
			emitted[t.Name] = true
		}
		var stuck []string
		for node := range byName {
			if !emitted[node] {
				stuck = append(stuck, node)
			}
		}
		sort.Strings(stuck)
		for _, node := range stuck {
			plan.Tables = append(plan.Tables, byName[node])
		}
		plan.Cycles = findCycles(graph, stuck)
	}

	if link != nil {
		plan.Tables = append(plan.Tables, *link)
	}
	if visit != nil {
		plan.Tables = append(plan.Tables, *visit)
	}
	return plan
}

// sortReady puts tables declaring bridges first, then sorts by name.
func sortReady(ready []string, byName map[string]schema.TableDescriptor) {
	sort.Slice(ready, func(i, j int) bool {
		bi, bj := byName[ready[i]].HasBridges(), byName[ready[j]].HasBridges()
		if bi != bj {
			return bi
		}
		return ready[i] < ready[j]
	})
}

// dependencyGraph maps a table to the tables that must be processed after it.
type dependencyGraph map[string][]string

// buildGraph adds an edge for every bridge between two non-anchor tables.
// Bridges to anchors or to unregistered tables carry no ordering constraint
// beyond the anchors' pinned positions. Bridges of a table that joins
// directly are never followed, so they add no edge.
func buildGraph(byName map[string]schema.TableDescriptor) dependencyGraph {
	graph := make(dependencyGraph, len(byName))
	for name, t := range byName {
		if graph[name] == nil {
			graph[name] = []string{}
		}
		if t.JoinsDirectly() {
			continue
		}
		seen := make(map[string]bool)
		for _, b := range t.Bridges {
			if _, ok := byName[b.Table]; !ok || seen[b.Table] {
				continue
			}
			seen[b.Table] = true
			graph[name] = append(graph[name], b.Table)
		}
	}
	return graph
}
