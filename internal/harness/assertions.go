package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// assertRowCount checks the number of rows left in a physical table.
func assertRowCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	if err := schema.ValidIdentifier(assertion.Table); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", st.Prefix(), assertion.Table)
	if err := st.DB().QueryRowContext(ctx, query).Scan(&n); err != nil {
		return &AssertionError{
			Type:     "row_count",
			Expected: fmt.Sprintf("count rows of %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if n != assertion.Count {
		return &AssertionError{
			Type:     "row_count",
			Expected: fmt.Sprintf("%d rows in %s", assertion.Count, assertion.Table),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

// assertExportEmpty checks that an export step found nothing.
func assertExportEmpty(steps []StepResult, assertion Assertion) error {
	sr, err := exportStep(steps, assertion)
	if err != nil {
		return err
	}

	var nonEmpty []string
	for _, key := range sr.Exports.Keys() {
		if len(sr.Exports[key]) > 0 {
			nonEmpty = append(nonEmpty, fmt.Sprintf("%s=%d", key, len(sr.Exports[key])))
		}
	}
	if len(nonEmpty) > 0 {
		return &AssertionError{
			Type:     "export_empty",
			Expected: fmt.Sprintf("step %d exported no rows", assertion.Step),
			Actual:   strings.Join(nonEmpty, ", "),
		}
	}
	return nil
}

// assertExportContains checks that an export step produced a row matching
// Where whose fields include Expect (subset semantics).
func assertExportContains(steps []StepResult, assertion Assertion) error {
	sr, err := exportStep(steps, assertion)
	if err != nil {
		return err
	}

	rows, ok := sr.Exports[assertion.Table]
	if !ok {
		return &AssertionError{
			Type:     "export_contains",
			Expected: fmt.Sprintf("export key %s in step %d", assertion.Table, assertion.Step),
			Actual:   fmt.Sprintf("keys: %v", sr.Exports.Keys()),
		}
	}

	for _, row := range rows {
		if !matchRow(row, assertion.Where) {
			continue
		}
		return compareFields("export_contains", row, assertion.Expect)
	}

	return &AssertionError{
		Type:     "export_contains",
		Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
		Actual:   fmt.Sprintf("row not found among %d row(s)", len(rows)),
	}
}

func exportStep(steps []StepResult, assertion Assertion) (StepResult, error) {
	if assertion.Step < 0 || assertion.Step >= len(steps) {
		return StepResult{}, fmt.Errorf("%s: step %d out of range", assertion.Type, assertion.Step)
	}
	sr := steps[assertion.Step]
	if sr.Op != OpExport {
		return StepResult{}, fmt.Errorf("%s: step %d is %s, not export", assertion.Type, assertion.Step, sr.Op)
	}
	if sr.Err != nil {
		return StepResult{}, fmt.Errorf("%s: step %d failed: %v", assertion.Type, assertion.Step, sr.Err)
	}
	return sr, nil
}

// assertFinalState checks if a physical table contains expected values.
// Queries with parameterized SQL and validates expected values using
// subset semantics.
//
// Table and column names are validated as identifiers before they are
// interpolated.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}
	if err := schema.ValidIdentifier(assertion.Table); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", st.Prefix(), assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     "final_state",
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     "final_state",
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Multiple matches make the assertion ambiguous
	if rows.Next() {
		return &AssertionError{
			Type:     "final_state",
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	return compareFields("final_state", actualRow, assertion.Expect)
}

// compareFields checks each expected field against row.
func compareFields(kind string, row map[string]interface{}, expect map[string]interface{}) error {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := expect[key]
		actualValue, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in row", key),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// matchRow reports whether row holds every where field.
func matchRow(row map[string]interface{}, where map[string]interface{}) bool {
	for key, want := range where {
		got, ok := row[key]
		if !ok || !stateValuesEqual(want, got) {
			return false
		}
	}
	return true
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if err := schema.ValidIdentifier(key); err != nil {
			return "", nil, fmt.Errorf("invalid column name in where clause: %w", err)
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, int, int64, float64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares an expected YAML value with a value read from
// the database or an export row.
// SQLite integers arrive as int64, text as string or []byte.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		if actualStr, ok := actual.(string); ok {
			return exp == actualStr
		}
		return false
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		if actualFloat, ok := actual.(float64); ok {
			return exp == actualFloat
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual interface{}) bool {
	switch a := actual.(type) {
	case int64:
		return exp == a
	case int:
		return exp == int64(a)
	}
	return false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for row_count and
// final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertExportEmpty:
			err = assertExportEmpty(result.Steps, assertion)
		case AssertExportContains:
			err = assertExportContains(result.Steps, assertion)
		case AssertRowCount, AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertRowCount {
				err = assertRowCount(actx.Ctx, actx.Store, assertion)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
