package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool       `json:"valid"`
	Tables     int        `json:"tables"`
	Dimensions int        `json:"dimensions"`
	Unresolved []string   `json:"unresolved,omitempty"`
	Cycles     [][]string `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the table catalog",
		Long: `Load the CUE catalog, resolve a join path for every table and check that
bridge relations do not loop. An erasure against a catalog that fails
validation would be refused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	cfg, err := resolveConfig(opts, cmd, f, false)
	if err != nil {
		return err
	}
	c, err := loadCatalog(cfg, f)
	if err != nil {
		return err
	}

	report, err := buildPlanReport(cmd.Context(), c, cfg.Anchors)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCatalog, "cannot plan catalog", err)
	}
	dims, _ := c.AllDimensions(cmd.Context())

	result := ValidationResult{
		Tables:     len(report.Tables),
		Dimensions: len(dims),
		Unresolved: report.Unresolved(),
		Cycles:     report.Cycles,
	}
	result.Valid = len(result.Unresolved) == 0 && len(result.Cycles) == 0

	if result.Valid {
		if f.IsJSON() {
			return f.Success(result)
		}
		fmt.Fprintf(f.Writer, "✓ Catalog valid (%d tables, %d dimensions)\n", result.Tables, result.Dimensions)
		return nil
	}

	if f.IsJSON() {
		if err := f.encode(CLIResponse{Status: "error", Data: result, Error: &CLIError{
			Code:    validationCode(result),
			Message: "catalog validation failed",
		}}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed")
		fmt.Fprintln(f.Writer)
		for _, name := range result.Unresolved {
			fmt.Fprintf(f.Writer, "  %s: table %s has no join path to a visit\n", ErrCodeUnresolvable, name)
		}
		for _, cycle := range result.Cycles {
			fmt.Fprintf(f.Writer, "  %s: bridges loop: %s\n", ErrCodeCycle, strings.Join(cycle, " <-> "))
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("%s: catalog validation failed with %d error(s)",
		validationCode(result), len(result.Unresolved)+len(result.Cycles)))
}

func validationCode(r ValidationResult) string {
	if len(r.Cycles) > 0 {
		return ErrCodeCycle
	}
	return ErrCodeUnresolvable
}
