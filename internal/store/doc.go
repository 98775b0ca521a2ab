// Package store executes data-subject statements against the database that
// holds the visit tables.
//
// The store is the only component touching physical storage. It supports
// three drivers, selected by name:
//   - sqlite3: github.com/mattn/go-sqlite3
//   - mysql: github.com/go-sql-driver/mysql
//   - postgres: github.com/lib/pq
//
// Statements are assembled by package querysql and rendered here in the
// connection's dialect. Logical table names are namespaced with the store's
// prefix to form physical names.
//
// # Database Configuration
//
// SQLite connections use a single pooled connection, busy_timeout=5000 and
// foreign_keys=ON. Other drivers use database/sql defaults.
package store
