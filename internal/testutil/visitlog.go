// Package testutil provides shared fixtures for datasubjects tests.
package testutil

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/datasubjects/internal/catalog"
	"github.com/roach88/datasubjects/internal/schema"
)

// VisitLogDDL creates the fixture tables. {p} is replaced by the prefix.
var VisitLogDDL = []string{
	`CREATE TABLE {p}log_visit (
		idvisit INTEGER PRIMARY KEY,
		idsite INTEGER NOT NULL,
		idvisitor BLOB,
		location_ip BLOB,
		config_device_type INTEGER,
		visit_total_actions INTEGER
	)`,
	`CREATE TABLE {p}log_link_visit_action (
		idlink_va INTEGER PRIMARY KEY,
		idsite INTEGER NOT NULL,
		idvisit INTEGER NOT NULL,
		idaction_url INTEGER,
		time_spent INTEGER
	)`,
	`CREATE TABLE {p}log_conversion (
		idvisit INTEGER NOT NULL,
		idsite INTEGER NOT NULL,
		idgoal INTEGER NOT NULL,
		buster INTEGER NOT NULL,
		idorder TEXT,
		revenue INTEGER
	)`,
	`CREATE TABLE {p}log_action (
		idaction INTEGER PRIMARY KEY,
		name TEXT,
		type INTEGER,
		url_prefix INTEGER
	)`,
	`CREATE TABLE {p}custom_event (
		id INTEGER PRIMARY KEY,
		idlink_va INTEGER NOT NULL,
		category TEXT,
		payload TEXT
	)`,
	`CREATE TABLE {p}order_note (
		id INTEGER PRIMARY KEY,
		idorder TEXT NOT NULL,
		note TEXT
	)`,
}

// Fixture visits. MismatchedVisit pairs VisitA's visit id with the wrong
// site and matches nothing.
var (
	VisitA          = schema.VisitKey{SiteID: 1, VisitID: 100}
	VisitB          = schema.VisitKey{SiteID: 1, VisitID: 200}
	OtherVisit      = schema.VisitKey{SiteID: 2, VisitID: 300}
	MismatchedVisit = schema.VisitKey{SiteID: 2, VisitID: 100}
)

// CompressedNote is stored zlib-compressed in custom_event.payload of
// VisitA's first event.
const CompressedNote = "clicked the big red button"

// CreateVisitLog creates and seeds the fixture tables in db.
//
// Row counts per table, for VisitA / VisitB / OtherVisit:
//   - log_visit: 1 / 1 / 1
//   - log_link_visit_action: 2 / 1 / 1
//   - log_conversion: 1 / 0 / 1
//   - custom_event: 2 / 0 / 1 (through the link table)
//   - order_note: 1 / 0 / 1 (through log_conversion)
func CreateVisitLog(t *testing.T, db *sql.DB, prefix string) {
	t.Helper()

	for _, ddl := range VisitLogDDL {
		mustExec(t, db, strings.ReplaceAll(ddl, "{p}", prefix))
	}

	p := func(q string) string { return strings.ReplaceAll(q, "{p}", prefix) }

	mustExec(t, db, p(`INSERT INTO {p}log_visit VALUES (?, ?, ?, ?, ?, ?)`), 100, 1, []byte{0xde, 0xad}, []byte{192, 168, 1, 7}, 1, 2)
	mustExec(t, db, p(`INSERT INTO {p}log_visit VALUES (?, ?, ?, ?, ?, ?)`), 200, 1, []byte{0xbe, 0xef}, []byte{10, 0, 0, 2}, 0, 1)
	mustExec(t, db, p(`INSERT INTO {p}log_visit VALUES (?, ?, ?, ?, ?, ?)`), 300, 2, []byte{0xca, 0xfe}, []byte{10, 0, 0, 3}, 0, 1)

	mustExec(t, db, p(`INSERT INTO {p}log_action VALUES (1, 'example.com/home', 1, 1)`))
	mustExec(t, db, p(`INSERT INTO {p}log_action VALUES (2, 'example.com/cart', 1, 2)`))
	mustExec(t, db, p(`INSERT INTO {p}log_action VALUES (3, 'Home page', 4, NULL)`))

	mustExec(t, db, p(`INSERT INTO {p}log_link_visit_action VALUES (1, 1, 100, 1, 5)`))
	mustExec(t, db, p(`INSERT INTO {p}log_link_visit_action VALUES (2, 1, 100, 2, 7)`))
	mustExec(t, db, p(`INSERT INTO {p}log_link_visit_action VALUES (3, 1, 200, 1, 3)`))
	mustExec(t, db, p(`INSERT INTO {p}log_link_visit_action VALUES (4, 2, 300, 2, 9)`))

	mustExec(t, db, p(`INSERT INTO {p}log_conversion VALUES (100, 1, 1, 0, 'A-1', 42)`))
	mustExec(t, db, p(`INSERT INTO {p}log_conversion VALUES (300, 2, 1, 0, 'B-1', 13)`))

	mustExec(t, db, p(`INSERT INTO {p}custom_event VALUES (?, ?, ?, ?)`), 1, 1, "click", Compress(t, CompressedNote))
	mustExec(t, db, p(`INSERT INTO {p}custom_event VALUES (?, ?, ?, ?)`), 2, 2, "view", []byte("plain"))
	mustExec(t, db, p(`INSERT INTO {p}custom_event VALUES (?, ?, ?, ?)`), 3, 4, "click", []byte("other site"))

	mustExec(t, db, p(`INSERT INTO {p}order_note VALUES (1, 'A-1', 'gift wrap')`))
	mustExec(t, db, p(`INSERT INTO {p}order_note VALUES (2, 'B-1', 'other site note')`))
}

// VisitLogCatalog returns the catalog describing the fixture tables.
func VisitLogCatalog() *catalog.Static {
	return catalog.MustStatic(VisitLogTables(), VisitLogDimensions()...)
}

// VisitLogTables returns the fixture descriptors.
func VisitLogTables() []schema.TableDescriptor {
	return []schema.TableDescriptor{
		{Name: "log_visit", IDColumns: []string{"idvisit"}, VisitJoinColumn: "idvisit"},
		{Name: "log_link_visit_action", IDColumns: []string{"idlink_va"}, VisitJoinColumn: "idvisit", ActionJoinColumn: "idaction_url"},
		{Name: "log_conversion", IDColumns: []string{"idvisit", "idgoal", "buster"}, VisitJoinColumn: "idvisit"},
		{Name: "log_action", IDColumns: []string{"idaction"}},
		{
			Name:      "custom_event",
			IDColumns: []string{"id"},
			Bridges:   []schema.Bridge{{Table: "log_link_visit_action", Column: "idlink_va"}},
		},
		{
			Name:      "order_note",
			IDColumns: []string{"id"},
			Bridges:   []schema.Bridge{{Table: "log_conversion", Column: "idorder"}},
		},
	}
}

// VisitLogDimensions returns the fixture dimensions.
func VisitLogDimensions() []schema.Dimension {
	device, _ := catalog.NewFormatter(catalog.FormatEnum, map[string]string{"0": "desktop", "1": "smartphone"})
	return []schema.Dimension{
		catalog.Dimension{Table: "log_visit", Column: "location_ip", Binary: true, Formatter: catalog.IP},
		catalog.Dimension{Table: "log_visit", Column: "config_device_type", Formatter: device},
		catalog.Dimension{Table: "log_link_visit_action", Column: "idaction_url", ActionNameJoin: true},
	}
}

// Compress returns s zlib-compressed.
func Compress(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress: %v", err)
	}
	return buf.Bytes()
}

// CountRows returns the number of rows in a physical table.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
