package subject

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/schema"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingExecutor records every call and returns canned results.
type recordingExecutor struct {
	mu      sync.Mutex
	calls   int
	deletes []string
	selects []string

	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	failDelete string
}

func (e *recordingExecutor) enter() func() {
	n := e.inFlight.Add(1)
	for {
		m := e.maxSeen.Load()
		if n <= m || e.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return func() { e.inFlight.Add(-1) }
}

func (e *recordingExecutor) Columns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return []schema.ColumnInfo{{Name: "id", Type: "INTEGER"}}, nil
}

func (e *recordingExecutor) Delete(ctx context.Context, stmt querysql.Statement) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if stmt.Target == e.failDelete {
		return 0, io.ErrUnexpectedEOF
	}
	e.deletes = append(e.deletes, stmt.Target)
	return 1, nil
}

func (e *recordingExecutor) Select(ctx context.Context, stmt querysql.Statement, columns []string) ([]schema.Row, error) {
	defer e.enter()()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.selects = append(e.selects, stmt.Target)
	return []schema.Row{}, nil
}
