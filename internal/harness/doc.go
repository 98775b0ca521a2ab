// Package harness runs data-subject scenarios against a throwaway SQLite
// database and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: testdata/catalog
//	fixture: testdata/fixtures/visitlog.sql
//	prefix: matomo_
//	setup:
//	  - "INSERT INTO {p}log_visit (idvisit, idsite) VALUES (900, 1)"
//	steps:
//	  - op: export
//	    visits: ["1:100"]
//	  - op: erase
//	    visits: ["1:100"]
//	    expect: { log_visit: 1 }
//	assertions:
//	  - type: row_count
//	    table: log_visit
//	    count: 2
//	  - type: export_empty
//	    step: 2
//	  - type: export_contains
//	    step: 0
//	    table: log_visit
//	    where: { idvisit: 100 }
//	    expect: { location_ip: "192.168.1.7" }
//	  - type: final_state
//	    table: log_action
//	    where: { idaction: 1 }
//	    expect: { name: "example.com/home" }
//
// {p} in fixture and setup SQL is replaced with the scenario's prefix.
// Table names in assertions are logical names; the prefix is applied when
// querying.
//
// # Assertion Types
//
//   - row_count: a physical table holds exactly N rows
//   - export_empty: every key of an export step has no rows
//   - export_contains: an export step produced a row matching where, with
//     the expected values
//   - final_state: queries a physical table and verifies expected values
//
// # Golden Files
//
// RunWithGolden records per-step row counts as canonical JSON under
// testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
