package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/datasubjects/internal/result"
	"github.com/roach88/datasubjects/internal/subject"
)

// Snapshot captures the per-step counts of a scenario execution.
// It serializes as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Steps        []StepResult
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, sr := range s.Steps {
		step := map[string]any{
			"op":     sr.Op,
			"visits": sr.Visits,
		}
		if sr.Err != nil {
			step["error"] = string(subject.Code(sr.Err))
		} else {
			counts := make(map[string]any, len(sr.Counts))
			for k, n := range sr.Counts {
				counts[k] = n
			}
			step["counts"] = counts
		}
		steps[i] = step
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	res, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, res *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Steps: res.Steps}
	data, err := result.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
