package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datasubjects/internal/result"
	"github.com/roach88/datasubjects/internal/schema"
)

// EraseOptions holds flags for the erase command.
type EraseOptions struct {
	Visits []string
	Yes    bool
}

// EraseSummary is the erase command's output.
type EraseSummary struct {
	Visits int           `json:"visits"`
	Rows   int64         `json:"rows"`
	Tables result.Counts `json:"tables"`
}

// NewEraseCommand creates the erase command.
func NewEraseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EraseOptions{}

	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Delete every row recorded for the given visits",
		Long: `Delete every row recorded for the given visits, table by table, in an
order that keeps bridge tables available until nothing joins through them.

The erasure is refused before any row is deleted when a table cannot be
connected to a visit. Deletion is not transactional across tables.`,
		Example: `  datasubjects erase --config datasubjects.yaml --visit 1:100 --yes`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErase(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Visits, "visit", nil, "visit to erase as site:visit (repeatable)")
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the erasure")
	_ = cmd.MarkFlagRequired("visit")

	return cmd
}

func runErase(rootOpts *RootOptions, opts *EraseOptions, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	keys, err := schema.ParseVisitKeys(opts.Visits)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidVisit, "invalid visit", err)
	}
	if !opts.Yes {
		return f.Fail(ExitCommandError, ErrCodeNotConfirmed,
			fmt.Sprintf("refusing to erase %d visit(s) without --yes", len(keys)), nil)
	}

	svc, s, err := openService(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer s.Close()

	counts, err := svc.DeleteDataSubjects(cmd.Context(), keys)
	if err != nil {
		return operationFailure(f, "erasure failed", err)
	}

	summary := EraseSummary{Visits: len(keys), Rows: result.Total(counts), Tables: counts}
	if f.IsJSON() {
		return f.Success(summary)
	}

	fmt.Fprintf(f.Writer, "Erased %d row(s) for %d visit(s)\n", summary.Rows, summary.Visits)
	for _, k := range counts.Keys() {
		fmt.Fprintf(f.Writer, "  %-40s %d\n", k, counts[k])
	}
	return nil
}
