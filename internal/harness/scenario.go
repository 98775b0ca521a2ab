package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datasubjects/internal/schema"
)

// Scenario defines a data-subject scenario: a seeded database, a sequence of
// export and erase operations, and the assertions that must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the directory holding the CUE table and dimension catalog.
	Catalog string `yaml:"catalog"`

	// Fixture is an optional SQL file creating and seeding the tables.
	Fixture string `yaml:"fixture,omitempty"`

	// Prefix is the physical table namespace.
	Prefix string `yaml:"prefix,omitempty"`

	// Setup contains SQL statements executed after the fixture.
	Setup []string `yaml:"setup,omitempty"`

	// Steps run in order against the same database.
	Steps []Step `yaml:"steps"`

	// Assertions validate step outcomes and the final database.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation of a scenario.
type Step struct {
	// Op is "export" or "erase".
	Op string `yaml:"op"`

	// Visits lists "site:visit" keys.
	Visits []string `yaml:"visits"`

	// Expect holds expected per-table counts: deleted rows for erase,
	// exported rows for export. Subset match.
	Expect map[string]int64 `yaml:"expect,omitempty"`

	// Error, when set, is a substring the step's error must contain.
	// A step expecting an error produces no counts.
	Error string `yaml:"error,omitempty"`
}

// Step operations.
const (
	OpExport = "export"
	OpErase  = "erase"
)

// Assertion validates step outcomes or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": physical table holds Count rows
	// - "export_empty": every key of export step Step is empty
	// - "export_contains": export step Step has a row in Table matching Where
	// - "final_state": query Table and verify expected values
	Type string `yaml:"type"`

	// Step indexes Scenario.Steps (used by export_empty, export_contains).
	Step int `yaml:"step,omitempty"`

	// Table is the logical table name, or an export key for export_contains.
	Table string `yaml:"table,omitempty"`

	// Where specifies row filters. All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values. Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount       = "row_count"
	AssertExportEmpty    = "export_empty"
	AssertExportContains = "export_contains"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog and fixture paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		scenario.Catalog = resolvePath(basePath, scenario.Catalog)
		scenario.Fixture = resolvePath(basePath, scenario.Fixture)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); err != nil {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}

	if s.Fixture != "" {
		if _, err := os.Stat(s.Fixture); err != nil {
			return fmt.Errorf("fixture not found: %s", s.Fixture)
		}
	}

	if s.Prefix != "" {
		if err := schema.ValidIdentifier(s.Prefix); err != nil {
			return fmt.Errorf("prefix: %w", err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op != OpExport && step.Op != OpErase {
			return fmt.Errorf("steps[%d]: op must be %q or %q, got %q", i, OpExport, OpErase, step.Op)
		}
		if len(step.Visits) == 0 {
			return fmt.Errorf("steps[%d]: visits list is required", i)
		}
		if _, err := schema.ParseVisitKeys(step.Visits); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.Steps); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps []Step) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertExportEmpty, AssertExportContains:
		if a.Step < 0 || a.Step >= len(steps) {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
		if steps[a.Step].Op != OpExport {
			return fmt.Errorf("assertions[%d]: step %d is not an export", index, a.Step)
		}
		if a.Type == AssertExportContains && a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for export_contains", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
