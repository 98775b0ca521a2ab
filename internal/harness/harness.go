package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/roach88/datasubjects/internal/catalog"
	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/store"
	"github.com/roach88/datasubjects/internal/subject"
)

// Harness is the test execution engine.
// It runs scenario steps against one database with deterministic
// operation ids.
type Harness struct {
	service *subject.Service
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Apply the fixture and setup SQL
// 3. Load the catalog and build the service
// 4. Execute steps, checking expected counts and errors
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open("sqlite3", ":memory:", scenario.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	if err := applyFixture(ctx, st, scenario); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		service: subject.New(cat, cat, st,
			subject.WithTablePrefix(scenario.Prefix),
			subject.WithLogger(logger),
			subject.WithOperationIDs(subject.NewFixedGenerator(scenario.Name)),
		),
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// applyFixture executes the fixture file and setup statements with {p}
// replaced by the scenario prefix.
func applyFixture(ctx context.Context, st *store.Store, scenario *Scenario) error {
	var stmts []string
	if scenario.Fixture != "" {
		data, err := os.ReadFile(scenario.Fixture)
		if err != nil {
			return fmt.Errorf("failed to read fixture: %w", err)
		}
		stmts = append(stmts, string(data))
	}
	stmts = append(stmts, scenario.Setup...)

	for i, stmt := range stmts {
		sql := strings.ReplaceAll(stmt, "{p}", scenario.Prefix)
		if _, err := st.DB().ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("setup statement %d: %w", i, err)
		}
	}
	return nil
}

// executeStep runs one operation and records its outcome. Operation
// failures are scenario errors, not harness errors.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	keys, err := schema.ParseVisitKeys(step.Visits)
	if err != nil {
		return err
	}

	sr := StepResult{Op: step.Op, Visits: step.Visits}
	switch step.Op {
	case OpExport:
		exports, err := h.service.ExportDataSubjects(ctx, keys)
		sr.Err = err
		if err == nil {
			sr.Exports = exports
			sr.Counts = exportCounts(exports)
		}
	case OpErase:
		counts, err := h.service.DeleteDataSubjects(ctx, keys)
		sr.Err = err
		if err == nil {
			sr.Counts = map[string]int64(counts)
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	result.AddStep(sr)

	h.logger.Info("step completed", "step", index, "op", step.Op, "visits", len(keys), "error", sr.Err)

	for _, msg := range checkStep(index, step, sr) {
		result.AddError(msg)
	}
	return nil
}

// checkStep compares a step outcome against its expect and error clauses.
func checkStep(index int, step Step, sr StepResult) []string {
	var errs []string

	if step.Error != "" {
		if sr.Err == nil {
			return append(errs, fmt.Sprintf("step %d (%s): expected error containing %q, got success", index, step.Op, step.Error))
		}
		if !strings.Contains(sr.Err.Error(), step.Error) {
			errs = append(errs, fmt.Sprintf("step %d (%s): expected error containing %q, got %q", index, step.Op, step.Error, sr.Err.Error()))
		}
		return errs
	}
	if sr.Err != nil {
		return append(errs, fmt.Sprintf("step %d (%s): %v", index, step.Op, sr.Err))
	}

	tables := make([]string, 0, len(step.Expect))
	for t := range step.Expect {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, t := range tables {
		want := step.Expect[t]
		got, ok := sr.Counts[t]
		if !ok {
			errs = append(errs, fmt.Sprintf("step %d (%s): no count for %s", index, step.Op, t))
			continue
		}
		if got != want {
			errs = append(errs, fmt.Sprintf("step %d (%s): %s = %d, want %d", index, step.Op, t, got, want))
		}
	}
	return errs
}
