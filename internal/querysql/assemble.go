package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/datasubjects/internal/schema"
)

// ErrNoVisits is returned when a statement would filter on no visits.
var ErrNoVisits = errors.New("no visit keys given")

// Columns of the shared action-name table.
const (
	ActionIDColumn        = "idaction"
	ActionNameColumn      = "name"
	ActionURLPrefixColumn = "url_prefix"
)

// Statement is an assembled FROM/WHERE pair for one target table.
type Statement struct {
	Target string // Logical name of the table rows are deleted from or read from
	From   string
	Where  string
	Params []any

	// OrderBy holds qualified columns for deterministic export order.
	OrderBy []string
}

// Assembler builds statements against namespaced physical tables.
type Assembler struct {
	// Prefix is prepended to every logical table name to form the
	// physical one, e.g. "matomo_" turns log_visit into matomo_log_visit.
	Prefix string
}

// NewAssembler creates an Assembler for the given table prefix.
func NewAssembler(prefix string) *Assembler {
	return &Assembler{Prefix: prefix}
}

// PhysicalName returns the namespaced name of a logical table.
func (a *Assembler) PhysicalName(table string) string {
	return a.Prefix + table
}

// Build assembles the statement reaching path's base table for keys.
// idColumns become the ORDER BY of an export select; when empty, rows are
// ordered by the selectable table's site and visit ids.
func (a *Assembler) Build(path schema.JoinPath, idColumns []string, keys []schema.VisitKey) (Statement, error) {
	if len(keys) == 0 {
		return Statement{}, ErrNoVisits
	}
	if err := a.validate(append(path.Tables(), path.Selectable)...); err != nil {
		return Statement{}, err
	}
	if err := a.validate(idColumns...); err != nil {
		return Statement{}, err
	}

	var from strings.Builder
	from.WriteString(a.aliased(path.Base))
	for _, step := range path.Steps {
		fmt.Fprintf(&from, " LEFT JOIN %s ON %s", a.aliased(step.Table), step.Condition)
	}

	where, params := visitFilter(path.Selectable, schema.VisitColumn, keys)

	orderBy := make([]string, 0, len(idColumns))
	for _, c := range idColumns {
		orderBy = append(orderBy, path.Base+"."+c)
	}
	if len(orderBy) == 0 {
		orderBy = []string{path.Selectable + "." + schema.SiteColumn, path.Selectable + "." + schema.VisitColumn}
	}

	return Statement{
		Target:  path.Base,
		From:    from.String(),
		Where:   where,
		Params:  params,
		OrderBy: orderBy,
	}, nil
}

// BuildActionNameLookup assembles the statement resolving the action ids
// stored in ownerTable.ownerColumn to rows of the action-name table, for
// the visits in keys. visitColumn is ownerTable's visit join column.
func (a *Assembler) BuildActionNameLookup(actionTable, ownerTable, ownerColumn, visitColumn string, keys []schema.VisitKey) (Statement, error) {
	if len(keys) == 0 {
		return Statement{}, ErrNoVisits
	}
	if err := a.validate(actionTable, ownerTable, ownerColumn, visitColumn); err != nil {
		return Statement{}, err
	}

	from := fmt.Sprintf("%s INNER JOIN %s ON %s.%s = %s.%s",
		a.aliased(actionTable),
		a.aliased(ownerTable),
		ownerTable, ownerColumn,
		actionTable, ActionIDColumn)

	where, params := visitFilter(ownerTable, visitColumn, keys)

	return Statement{
		Target:  actionTable,
		From:    from,
		Where:   where,
		Params:  params,
		OrderBy: []string{actionTable + "." + ActionIDColumn},
	}, nil
}

// ActionNameColumns returns the qualified columns selected by an action-name
// lookup.
func ActionNameColumns(actionTable string) []string {
	return []string{
		actionTable + "." + ActionIDColumn,
		actionTable + "." + ActionNameColumn,
		actionTable + "." + ActionURLPrefixColumn,
	}
}

// ExportColumns returns the qualified select list for exporting target:
// every physical column once, plus the selectable table's idsite when the
// target has none of its own.
func ExportColumns(target, selectable string, physical []schema.ColumnInfo) []string {
	seen := make(map[string]bool, len(physical))
	cols := make([]string, 0, len(physical)+1)
	for _, c := range physical {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		cols = append(cols, target+"."+c.Name)
	}
	if !seen[schema.SiteColumn] {
		cols = append(cols, selectable+"."+schema.SiteColumn)
	}
	return cols
}

// DeleteSQL renders a statement deleting the matched rows of the target
// table only. Joined tables are used to reach the filter and are untouched.
func (s Statement) DeleteSQL(d Dialect, physicalTarget string) (string, []any) {
	var query string
	switch d {
	case MySQL:
		query = fmt.Sprintf("DELETE %s FROM %s WHERE %s", s.Target, s.From, s.Where)
	case Postgres:
		query = fmt.Sprintf("DELETE FROM %s WHERE ctid IN (SELECT %s.ctid FROM %s WHERE %s)",
			physicalTarget, s.Target, s.From, s.Where)
	default:
		query = fmt.Sprintf("DELETE FROM %s WHERE rowid IN (SELECT %s.rowid FROM %s WHERE %s)",
			physicalTarget, s.Target, s.From, s.Where)
	}
	return d.rebind(query), s.Params
}

// SelectSQL renders a select of columns ordered by the statement's OrderBy.
// Qualified columns are aliased to their bare name, which becomes the row key.
func (s Statement) SelectSQL(d Dialect, columns []string) (string, []any) {
	selects := make([]string, len(columns))
	for i, c := range columns {
		selects[i] = c
		if dot := strings.LastIndexByte(c, '.'); dot >= 0 {
			selects[i] = c + " AS " + c[dot+1:]
		}
	}
	orderBy := make([]string, len(s.OrderBy))
	for i, c := range s.OrderBy {
		orderBy[i] = c + " ASC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(selects, ", "), s.From, s.Where, strings.Join(orderBy, ", "))
	return d.rebind(query), s.Params
}

// visitFilter builds the disjunction over keys and its parameters.
func visitFilter(table, visitColumn string, keys []schema.VisitKey) (string, []any) {
	clauses := make([]string, len(keys))
	params := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("(%s.%s = ? AND %s.%s = ?)", table, schema.SiteColumn, table, visitColumn)
		params = append(params, k.SiteID, k.VisitID)
	}
	return strings.Join(clauses, " OR "), params
}

func (a *Assembler) aliased(table string) string {
	return a.PhysicalName(table) + " AS " + table
}

func (a *Assembler) validate(ids ...string) error {
	if a.Prefix != "" {
		if err := schema.ValidIdentifier(a.Prefix); err != nil {
			return fmt.Errorf("table prefix: %w", err)
		}
	}
	for _, id := range ids {
		if err := schema.ValidIdentifier(id); err != nil {
			return err
		}
	}
	return nil
}
