package subject

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/datasubjects/internal/joinpath"
	"github.com/roach88/datasubjects/internal/planner"
	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/result"
	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/transform"
)

// exportJob is one query of an export: a table or an action-name lookup.
type exportJob struct {
	key  string
	stmt querysql.Statement

	// table is set for table jobs; lookups have only key and stmt.
	table      *schema.TableDescriptor
	selectable string
}

// ExportDataSubjects returns every row recorded for keys, per table.
//
// Tables without a join path are skipped. Executor failures abort the
// call.
func (s *Service) ExportDataSubjects(ctx context.Context, keys []schema.VisitKey) (result.Exports, error) {
	exports := result.Exports{}
	if len(keys) == 0 {
		return exports, nil
	}

	opID, logger := s.begin("export", keys)

	tables, err := s.allTables(ctx, opID)
	if err != nil {
		return nil, err
	}
	dims, err := s.dims.AllDimensions(ctx)
	if err != nil {
		return nil, &OperationError{Code: ErrCodeCatalog, OperationID: opID, Err: fmt.Errorf("list dimensions: %w", err)}
	}

	plan := planner.Order(tables, s.anchors)
	if err := plan.Err(); err != nil {
		logger.Warn("bridge relations loop, exporting in best-effort order", "error", err)
	}

	jobs, err := s.tableJobs(ctx, opID, logger, plan.Reversed(), keys)
	if err != nil {
		return nil, err
	}
	lookups, err := s.lookupJobs(ctx, opID, dims, keys)
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, lookups...)

	tr := transform.New(dims, s.decompressor, logger)
	rows := make([][]schema.Row, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			out, err := s.runJob(gctx, tr, job)
			if err != nil {
				return &OperationError{Code: ErrCodeExecution, OperationID: opID, Table: job.key, Err: err}
			}
			rows[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("export failed", "error", err)
		return nil, err
	}

	for i, job := range jobs {
		if job.table == nil && len(rows[i]) == 0 {
			continue
		}
		exports[job.key] = rows[i]
	}

	for i, hook := range s.exportHooks {
		hookRows, err := hook(ctx, keys)
		if err != nil {
			return nil, &OperationError{Code: ErrCodeHook, OperationID: opID, Err: fmt.Errorf("export hook %d: %w", i, err)}
		}
		exports.Merge(hookRows)
	}

	logger.Info("data subjects exported",
		"visits", len(keys),
		"keys", len(exports),
		"rows", result.RowCount(exports))

	return exports, nil
}

// tableJobs resolves and assembles the query of every exportable table.
// Resolution is sequential because a Resolver is not safe for concurrent
// use.
func (s *Service) tableJobs(ctx context.Context, opID string, logger *slog.Logger, tables []schema.TableDescriptor, keys []schema.VisitKey) ([]exportJob, error) {
	resolver := joinpath.NewResolver(s.catalog, s.anchors)

	jobs := make([]exportJob, 0, len(tables))
	for i := range tables {
		t := tables[i]
		if t.Name == s.anchors.ActionName {
			continue
		}

		path, err := resolver.Resolve(ctx, t)
		if joinpath.IsUnresolvable(err) || joinpath.IsCycle(err) {
			logger.Warn("skipping table without join path", "table", t.Name, "error", err)
			continue
		}
		if err != nil {
			return nil, &OperationError{Code: ErrCodeCatalog, OperationID: opID, Table: t.Name, Err: err}
		}

		stmt, err := s.assembler.Build(path, t.IDColumns, keys)
		if err != nil {
			return nil, &OperationError{Code: ErrCodeExecution, OperationID: opID, Table: t.Name, Err: err}
		}
		jobs = append(jobs, exportJob{key: t.Name, stmt: stmt, table: &t, selectable: path.Selectable})
	}
	return jobs, nil
}

// lookupJobs assembles the action-name lookups of every action-name
// dimension whose owner table joins on the visit id.
func (s *Service) lookupJobs(ctx context.Context, opID string, dims []schema.Dimension, keys []schema.VisitKey) ([]exportJob, error) {
	var jobs []exportJob
	seen := make(map[string]bool)
	for _, d := range dims {
		if !d.JoinsActionName() {
			continue
		}
		key := transform.EnrichmentKey(s.anchors.ActionName, d.OwnerTable(), d.OwnerColumn())
		if seen[key] {
			continue
		}
		seen[key] = true

		owner, ok, err := s.catalog.Table(ctx, d.OwnerTable())
		if err != nil {
			return nil, &OperationError{Code: ErrCodeCatalog, OperationID: opID, Table: d.OwnerTable(), Err: err}
		}
		if !ok || owner.VisitJoinColumn == "" {
			continue
		}

		stmt, err := s.assembler.BuildActionNameLookup(s.anchors.ActionName, owner.Name, d.OwnerColumn(), owner.VisitJoinColumn, keys)
		if err != nil {
			return nil, &OperationError{Code: ErrCodeExecution, OperationID: opID, Table: key, Err: err}
		}
		jobs = append(jobs, exportJob{key: key, stmt: stmt})
	}
	return jobs, nil
}

func (s *Service) runJob(ctx context.Context, tr *transform.Transformer, job exportJob) ([]schema.Row, error) {
	if job.table == nil {
		rows, err := s.exec.Select(ctx, job.stmt, querysql.ActionNameColumns(s.anchors.ActionName))
		if err != nil {
			return nil, err
		}
		return transform.ActionNameRows(rows), nil
	}

	physical, err := s.exec.Columns(ctx, job.table.Name)
	if err != nil {
		return nil, err
	}
	columns := querysql.ExportColumns(job.table.Name, job.selectable, physical)

	rows, err := s.exec.Select(ctx, job.stmt, columns)
	if err != nil {
		return nil, err
	}
	return tr.Rows(job.table.Name, physical, rows), nil
}
