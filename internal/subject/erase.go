package subject

import (
	"context"
	"fmt"

	"github.com/roach88/datasubjects/internal/joinpath"
	"github.com/roach88/datasubjects/internal/planner"
	"github.com/roach88/datasubjects/internal/result"
	"github.com/roach88/datasubjects/internal/schema"
)

// DeleteDataSubjects erases every row recorded for keys and returns the
// affected row count per table.
//
// Fails without deleting anything when a table cannot be resolved or the
// bridge declarations form a cycle. A failing hook or statement aborts the
// call; rows deleted before the failure stay deleted.
func (s *Service) DeleteDataSubjects(ctx context.Context, keys []schema.VisitKey) (result.Counts, error) {
	counts := result.Counts{}
	if len(keys) == 0 {
		return counts, nil
	}

	opID, logger := s.begin("erase", keys)

	tables, err := s.allTables(ctx, opID)
	if err != nil {
		return nil, err
	}

	plan := planner.Order(tables, s.anchors)
	if err := plan.Err(); err != nil {
		logger.Error("cannot order tables for erasure", "error", err)
		return nil, &OperationError{Code: ErrCodeCycle, OperationID: opID, Err: err}
	}

	// Resolve every path before the first delete.
	resolver := joinpath.NewResolver(s.catalog, s.anchors)
	type step struct {
		table schema.TableDescriptor
		path  schema.JoinPath
	}
	steps := make([]step, 0, len(plan.Tables))
	for _, t := range plan.Tables {
		if t.Name == s.anchors.ActionName {
			continue
		}
		path, err := resolver.Resolve(ctx, t)
		if err != nil {
			logger.Error("cannot resolve table for erasure", "table", t.Name, "error", err)
			return nil, &OperationError{Code: resolveCode(err), OperationID: opID, Table: t.Name, Err: err}
		}
		steps = append(steps, step{table: t, path: path})
	}

	for i, hook := range s.erasureHooks {
		hookCounts, err := hook(ctx, keys)
		if err != nil {
			return nil, &OperationError{Code: ErrCodeHook, OperationID: opID, Err: fmt.Errorf("erasure hook %d: %w", i, err)}
		}
		counts.Merge(hookCounts)
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &OperationError{Code: ErrCodeExecution, OperationID: opID, Table: st.table.Name, Err: err}
		}

		stmt, err := s.assembler.Build(st.path, st.table.IDColumns, keys)
		if err != nil {
			return nil, &OperationError{Code: ErrCodeExecution, OperationID: opID, Table: st.table.Name, Err: err}
		}

		n, err := s.exec.Delete(ctx, stmt)
		if err != nil {
			logger.Error("delete failed", "table", st.table.Name, "error", err)
			return nil, &OperationError{Code: ErrCodeExecution, OperationID: opID, Table: st.table.Name, Err: err}
		}
		counts[st.table.Name] = n

		logger.Debug("table erased", "table", st.table.Name, "rows", n)
	}

	logger.Info("data subjects erased",
		"visits", len(keys),
		"tables", len(steps),
		"rows", result.Total(counts))

	return counts, nil
}

func resolveCode(err error) ErrorCode {
	if joinpath.IsCycle(err) {
		return ErrCodeCycle
	}
	if joinpath.IsUnresolvable(err) {
		return ErrCodeUnresolvable
	}
	return ErrCodeCatalog
}
