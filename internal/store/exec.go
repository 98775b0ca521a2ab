package store

import (
	"context"
	"fmt"

	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/schema"
)

// Columns returns the physical columns of a logical table in declaration
// order. Returns an error if the table does not exist.
func (s *Store) Columns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	if err := schema.ValidIdentifier(table); err != nil {
		return nil, err
	}
	physical := s.prefix + table

	var (
		cols []schema.ColumnInfo
		err  error
	)
	switch s.dialect {
	case querysql.MySQL:
		cols, err = s.informationSchemaColumns(ctx, physical,
			"SELECT column_name, column_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position")
	case querysql.Postgres:
		cols, err = s.informationSchemaColumns(ctx, physical,
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position")
	default:
		cols, err = s.sqliteColumns(ctx, physical)
	}
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", physical, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", physical)
	}
	return cols, nil
}

func (s *Store) sqliteColumns(ctx context.Context, physical string) ([]schema.ColumnInfo, error) {
	// PRAGMA arguments cannot be bound; physical was validated by Columns.
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", physical))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.ColumnInfo
	for rows.Next() {
		var (
			cid      int
			name     string
			declared string
			notNull  int
			dflt     any
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, schema.ColumnInfo{Name: name, Type: declared, Binary: isBinaryType(declared)})
	}
	return cols, rows.Err()
}

func (s *Store) informationSchemaColumns(ctx context.Context, physical, query string) ([]schema.ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx, query, physical)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.ColumnInfo
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return nil, err
		}
		cols = append(cols, schema.ColumnInfo{Name: name, Type: declared, Binary: isBinaryType(declared)})
	}
	return cols, rows.Err()
}

// Delete removes the target table's rows matched by stmt and returns how
// many were affected.
func (s *Store) Delete(ctx context.Context, stmt querysql.Statement) (int64, error) {
	query, args := stmt.DeleteSQL(s.dialect, s.prefix+stmt.Target)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", stmt.Target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for %s: %w", stmt.Target, err)
	}
	return n, nil
}

// Select reads columns for the rows matched by stmt, in ORDER BY order.
// Values are returned as the driver produced them.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Select(ctx context.Context, stmt querysql.Statement, columns []string) ([]schema.Row, error) {
	query, args := stmt.SelectSQL(s.dialect, columns)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", stmt.Target, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s result: %w", stmt.Target, err)
	}

	out := []schema.Row{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", stmt.Target, err)
		}

		row := make(schema.Row, len(names))
		for i, name := range names {
			row[name] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", stmt.Target, err)
	}
	return out, nil
}
