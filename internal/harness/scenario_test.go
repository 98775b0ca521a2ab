package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: basic
description: "Basic export"
catalog: testdata/catalog
fixture: testdata/fixtures/visitlog.sql
prefix: matomo_
steps:
  - op: export
    visits: ["1:100"]
    expect: { log_visit: 1 }
assertions:
  - type: row_count
    table: log_visit
    count: 3
`)

	scenario, err := LoadScenarioWithBasePath(path, projectRoot())
	require.NoError(t, err)

	assert.Equal(t, "basic", scenario.Name)
	assert.Equal(t, filepath.Join(projectRoot(), "testdata", "catalog"), scenario.Catalog)
	assert.Equal(t, filepath.Join(projectRoot(), "testdata", "fixtures", "visitlog.sql"), scenario.Fixture)
	assert.Equal(t, "matomo_", scenario.Prefix)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, OpExport, scenario.Steps[0].Op)
	assert.Equal(t, map[string]int64{"log_visit": 1}, scenario.Steps[0].Expect)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertRowCount, scenario.Assertions[0].Type)
	assert.Equal(t, 3, scenario.Assertions[0].Count)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Typo in assertions"
catalog: testdata/catalog
steps:
  - op: export
    visits: ["1:100"]
assertion:
  - type: row_count
    table: log_visit
`)

	_, err := LoadScenarioWithBasePath(path, projectRoot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	const header = `
name: invalid
description: "Invalid scenario"
catalog: testdata/catalog
`
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "no steps",
			body:    "assertions:\n  - type: row_count\n    table: log_visit\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			body:    "steps:\n  - op: purge\n    visits: [\"1:1\"]\nassertions:\n  - type: row_count\n    table: t\n",
			wantErr: `op must be "export" or "erase"`,
		},
		{
			name:    "bad visit",
			body:    "steps:\n  - op: erase\n    visits: [\"100\"]\nassertions:\n  - type: row_count\n    table: t\n",
			wantErr: "expected site:visit",
		},
		{
			name:    "no assertions",
			body:    "steps:\n  - op: erase\n    visits: [\"1:1\"]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "step out of range",
			body:    "steps:\n  - op: export\n    visits: [\"1:1\"]\nassertions:\n  - type: export_empty\n    step: 3\n",
			wantErr: "step 3 out of range",
		},
		{
			name:    "assertion on erase step",
			body:    "steps:\n  - op: erase\n    visits: [\"1:1\"]\nassertions:\n  - type: export_empty\n",
			wantErr: "is not an export",
		},
		{
			name:    "final_state without expect",
			body:    "steps:\n  - op: erase\n    visits: [\"1:1\"]\nassertions:\n  - type: final_state\n    table: t\n",
			wantErr: "expect is required for final_state",
		},
		{
			name:    "unknown assertion",
			body:    "steps:\n  - op: erase\n    visits: [\"1:1\"]\nassertions:\n  - type: trace_order\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, header+tt.body)
			_, err := LoadScenarioWithBasePath(path, projectRoot())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingCatalog(t *testing.T) {
	path := writeScenario(t, `
name: nocat
description: "Catalog directory does not exist"
catalog: testdata/nowhere
steps:
  - op: export
    visits: ["1:100"]
assertions:
  - type: row_count
    table: log_visit
`)

	_, err := LoadScenarioWithBasePath(path, projectRoot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog not found")
}
