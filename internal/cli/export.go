package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/datasubjects/internal/result"
	"github.com/roach88/datasubjects/internal/schema"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Visits []string
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every row recorded for the given visits",
		Long: `Export every row recorded for the given visits as JSON, keyed by table.

Tables that cannot be connected to a visit are skipped with a warning.`,
		Example: `  datasubjects export --config datasubjects.yaml --visit 1:100 --visit 1:200
  datasubjects export --driver sqlite3 --dsn visits.db --visit 1:100 -o visit.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Visits, "visit", nil, "visit to export as site:visit (repeatable)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the export to a file instead of stdout")
	_ = cmd.MarkFlagRequired("visit")

	return cmd
}

func runExport(rootOpts *RootOptions, opts *ExportOptions, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	keys, err := schema.ParseVisitKeys(opts.Visits)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidVisit, "invalid visit", err)
	}

	svc, s, err := openService(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer s.Close()

	exports, err := svc.ExportDataSubjects(cmd.Context(), keys)
	if err != nil {
		return operationFailure(f, "export failed", err)
	}

	if opts.Output != "" {
		data, err := indentJSON(exports)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "cannot encode export", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o600); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "cannot write export", err)
		}
		return reportExport(f, keys, exports, opts.Output)
	}

	if f.IsJSON() {
		return f.Success(exports)
	}
	data, err := indentJSON(exports)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "cannot encode export", err)
	}
	_, err = f.Writer.Write(data)
	return err
}

// ExportSummary is printed when the export itself goes to a file.
type ExportSummary struct {
	Visits int            `json:"visits"`
	Rows   int            `json:"rows"`
	Tables map[string]int `json:"tables"`
	Output string         `json:"output"`
}

func reportExport(f *OutputFormatter, keys []schema.VisitKey, exports result.Exports, output string) error {
	summary := ExportSummary{
		Visits: len(keys),
		Rows:   result.RowCount(exports),
		Tables: make(map[string]int, len(exports)),
		Output: output,
	}
	for k, rows := range exports {
		summary.Tables[k] = len(rows)
	}

	if f.IsJSON() {
		return f.Success(summary)
	}
	fmt.Fprintf(f.Writer, "Exported %d row(s) for %d visit(s) to %s\n", summary.Rows, summary.Visits, output)
	for _, k := range exports.Keys() {
		fmt.Fprintf(f.Writer, "  %-40s %d\n", k, summary.Tables[k])
	}
	return nil
}

func indentJSON(v json.Marshaler) ([]byte, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
