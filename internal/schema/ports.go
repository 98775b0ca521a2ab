package schema

import "context"

// TableCatalog enumerates registered tables and their relationships.
type TableCatalog interface {
	AllTables(ctx context.Context) ([]TableDescriptor, error)

	// Table returns the named descriptor. ok is false when no table with
	// that name is registered.
	Table(ctx context.Context, name string) (TableDescriptor, bool, error)
}

// Dimension attaches typing and formatting metadata to one table column.
type Dimension interface {
	OwnerTable() string
	OwnerColumn() string
	IsBinary() bool
	FormatValue(raw any, siteID int64) (any, error)

	// JoinsActionName reports whether the column holds an id resolved
	// through the shared action-name table.
	JoinsActionName() bool
}

// DimensionRegistry enumerates registered dimensions.
type DimensionRegistry interface {
	AllDimensions(ctx context.Context) ([]Dimension, error)
}
