package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datasubjects/internal/joinpath"
	"github.com/roach88/datasubjects/internal/planner"
	"github.com/roach88/datasubjects/internal/schema"
)

// PlanReport describes how an erasure would walk the catalog.
type PlanReport struct {
	Tables []PlanEntry `json:"tables"`
	Cycles [][]string  `json:"cycles,omitempty"`
}

// PlanEntry is one table in processing order.
type PlanEntry struct {
	Name    string           `json:"name"`
	Path    *schema.JoinPath `json:"path,omitempty"`
	Skipped bool             `json:"skipped,omitempty"` // The action-name table is never processed directly
	Error   string           `json:"error,omitempty"`
}

// Unresolved returns the names of tables without a join path.
func (r PlanReport) Unresolved() []string {
	var names []string
	for _, e := range r.Tables {
		if e.Error != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the processing order and join path of every table",
		Long: `Print the order in which an erasure processes the catalog's tables and
the join path connecting each table to a visit. Tables that cannot be
resolved are flagged; the database is not contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, cmd)
		},
	}
}

func runPlan(opts *RootOptions, cmd *cobra.Command) error {
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

	if f.IsJSON() {
		return f.Success(report)
	}
	writePlan(f.Writer, report)
	return nil
}

// buildPlanReport orders the catalog and resolves every table.
// Resolution failures are recorded in the report; only catalog errors are
// returned.
func buildPlanReport(ctx context.Context, c schema.TableCatalog, anchors schema.Anchors) (PlanReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tables, err := c.AllTables(ctx)
	if err != nil {
		return PlanReport{}, err
	}

	plan := planner.Order(tables, anchors)
	report := PlanReport{Cycles: plan.Cycles}
	resolver := joinpath.NewResolver(c, anchors)

	for _, t := range plan.Tables {
		entry := PlanEntry{Name: t.Name}
		if t.Name == anchors.ActionName {
			entry.Skipped = true
			report.Tables = append(report.Tables, entry)
			continue
		}

		path, err := resolver.Resolve(ctx, t)
		switch {
		case joinpath.IsUnresolvable(err) || joinpath.IsCycle(err):
			entry.Error = err.Error()
		case err != nil:
			return PlanReport{}, err
		default:
			entry.Path = &path
		}
		report.Tables = append(report.Tables, entry)
	}
	return report, nil
}

func writePlan(w io.Writer, r PlanReport) {
	fmt.Fprintln(w, "Processing order:")
	for i, e := range r.Tables {
		switch {
		case e.Skipped:
			fmt.Fprintf(w, "%3d. %s (action names, not processed)\n", i+1, e.Name)
		case e.Error != "":
			fmt.Fprintf(w, "%3d. %s ✗ %s\n", i+1, e.Name, e.Error)
		case len(e.Path.Steps) == 0:
			fmt.Fprintf(w, "%3d. %s (anchor)\n", i+1, e.Name)
		default:
			fmt.Fprintf(w, "%3d. %s via %s\n", i+1, e.Name, strings.Join(e.Path.Tables()[1:], " -> "))
		}
	}
	for _, c := range r.Cycles {
		fmt.Fprintf(w, "cycle: %s\n", strings.Join(c, " <-> "))
	}
}
