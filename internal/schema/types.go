package schema

import (
	"fmt"
	"regexp"
)

// TableDescriptor describes one registered table and how it joins to others.
type TableDescriptor struct {
	Name             string   `json:"name"`
	IDColumns        []string `json:"id_columns,omitempty"`         // Export ORDER BY, declaration order
	VisitJoinColumn  string   `json:"visit_join_column,omitempty"`  // Equals the visit anchor's id column
	ActionJoinColumn string   `json:"action_join_column,omitempty"` // Equals the link anchor's action id column
	Bridges          []Bridge `json:"bridges,omitempty"`            // Tried in order during resolution
}

// Bridge declares a direct join to another table over a shared column.
type Bridge struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// HasBridges reports whether the table declares at least one bridge relation.
func (t TableDescriptor) HasBridges() bool {
	return len(t.Bridges) > 0
}

// JoinsDirectly reports whether the table declares a visit or action join
// column. Such a table never resolves through its bridges.
func (t TableDescriptor) JoinsDirectly() bool {
	return t.VisitJoinColumn != "" || t.ActionJoinColumn != ""
}

// BridgesTo reports whether the table declares name as a bridge relation.
func (t TableDescriptor) BridgesTo(name string) bool {
	for _, b := range t.Bridges {
		if b.Table == name {
			return true
		}
	}
	return false
}

// VisitKey identifies one visit of one site.
type VisitKey struct {
	SiteID  int64 `json:"idsite"`
	VisitID int64 `json:"idvisit"`
}

func (k VisitKey) String() string {
	return fmt.Sprintf("%d:%d", k.SiteID, k.VisitID)
}

// AnchorTable names a table carrying the canonical visit identity and the
// column other tables join against.
type AnchorTable struct {
	Table    string `json:"table" yaml:"table"`
	IDColumn string `json:"id_column" yaml:"id_column"`
}

// Anchors holds the fixed tables every join path terminates at.
type Anchors struct {
	Visit      AnchorTable `json:"visit" yaml:"visit"`
	ActionLink AnchorTable `json:"action_link" yaml:"action_link"`

	// ActionName is the shared id → name lookup table. It is never erased or
	// exported directly; its rows are reached through dimension enrichment.
	ActionName string `json:"action_name" yaml:"action_name"`
}

// Filter columns carried by every selectable table.
const (
	SiteColumn  = "idsite"
	VisitColumn = "idvisit"
)

// DefaultAnchors returns the standard visit-log anchor layout.
func DefaultAnchors() Anchors {
	return Anchors{
		Visit:      AnchorTable{Table: "log_visit", IDColumn: "idvisit"},
		ActionLink: AnchorTable{Table: "log_link_visit_action", IDColumn: "idaction_url"},
		ActionName: "log_action",
	}
}

// IsAnchor reports whether name is the visit or the action-link anchor.
func (a Anchors) IsAnchor(name string) bool {
	return name == a.Visit.Table || name == a.ActionLink.Table
}

// Validate checks that every anchor identifier is usable in SQL.
func (a Anchors) Validate() error {
	for _, id := range []string{a.Visit.Table, a.Visit.IDColumn, a.ActionLink.Table, a.ActionLink.IDColumn, a.ActionName} {
		if err := ValidIdentifier(id); err != nil {
			return fmt.Errorf("anchors: %w", err)
		}
	}
	return nil
}

// JoinStep is one LEFT JOIN in a resolved path.
type JoinStep struct {
	Table     string `json:"table"`
	Condition string `json:"on"` // e.g. "log_conversion.idvisit = log_visit.idvisit"
}

// JoinPath is the resolved chain of joins from a base table to an anchor.
type JoinPath struct {
	Base  string     `json:"base"`
	Steps []JoinStep `json:"steps,omitempty"`

	// Selectable is the table in the chain that carries idsite/idvisit.
	Selectable string `json:"selectable"`
}

// Tables returns every table in the path, base first.
func (p JoinPath) Tables() []string {
	tables := make([]string, 0, len(p.Steps)+1)
	tables = append(tables, p.Base)
	for _, s := range p.Steps {
		tables = append(tables, s.Table)
	}
	return tables
}

// Row is one exported row: column name → value.
type Row map[string]any

// ColumnInfo describes one physical column of a table.
type ColumnInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Binary bool   `json:"binary"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier returns an error unless s is a plain SQL identifier.
// Table and column names are interpolated into statements, so nothing else
// is allowed through.
func ValidIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}

// Validate checks every identifier the descriptor declares.
func (t TableDescriptor) Validate() error {
	ids := []string{t.Name}
	ids = append(ids, t.IDColumns...)
	if t.VisitJoinColumn != "" {
		ids = append(ids, t.VisitJoinColumn)
	}
	if t.ActionJoinColumn != "" {
		ids = append(ids, t.ActionJoinColumn)
	}
	for _, b := range t.Bridges {
		ids = append(ids, b.Table, b.Column)
	}
	for _, id := range ids {
		if err := ValidIdentifier(id); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return nil
}
