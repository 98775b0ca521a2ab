package harness

import (
	"github.com/roach88/datasubjects/internal/result"
)

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Op     string
	Visits []string

	// Counts holds deleted rows per table for erase steps and exported rows
	// per key for export steps.
	Counts map[string]int64

	// Exports is set for export steps.
	Exports result.Exports

	// Err is the error returned by the operation, if any.
	Err error
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep records a step outcome.
func (r *Result) AddStep(s StepResult) {
	r.Steps = append(r.Steps, s)
}

// exportCounts returns the number of rows per export key.
func exportCounts(e result.Exports) map[string]int64 {
	counts := make(map[string]int64, len(e))
	for k, rows := range e {
		counts[k] = int64(len(rows))
	}
	return counts
}
