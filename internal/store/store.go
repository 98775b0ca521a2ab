package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/schema"
)

// Store executes assembled statements against the tables holding visit data.
type Store struct {
	db      *sql.DB
	dialect querysql.Dialect
	prefix  string
}

// Open connects to the database identified by driver and dsn.
// prefix is the namespace prepended to every logical table name.
//
// SQLite connections are configured with:
//   - a single connection, so :memory: databases persist and writers
//     never contend
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(driver, dsn, prefix string) (*Store, error) {
	dialect, err := querysql.ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		if err := schema.ValidIdentifier(prefix); err != nil {
			return nil, fmt.Errorf("table prefix: %w", err)
		}
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return &Store{db: db, dialect: dialect, prefix: prefix}, nil
}

// New wraps an already open database handle.
func New(db *sql.DB, dialect querysql.Dialect, prefix string) *Store {
	return &Store{db: db, dialect: dialect, prefix: prefix}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL flavor of the connection.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// Prefix returns the table namespace prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// isBinaryType reports whether a declared column type stores raw bytes.
func isBinaryType(declared string) bool {
	t := strings.ToUpper(declared)
	return strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") || t == "BYTEA"
}
