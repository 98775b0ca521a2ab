package subject

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/transform"
)

// Executor runs assembled statements. It is the only point of contact with
// physical storage; *store.Store implements it.
type Executor interface {
	// Columns returns the physical columns of a logical table.
	Columns(ctx context.Context, table string) ([]schema.ColumnInfo, error)

	// Delete removes the target rows matched by stmt.
	Delete(ctx context.Context, stmt querysql.Statement) (int64, error)

	// Select reads columns of the rows matched by stmt in ORDER BY order.
	Select(ctx context.Context, stmt querysql.Statement, columns []string) ([]schema.Row, error)
}

// ErasureHook lets another module erase its own data for the visits.
// The returned counts are merged into the result before core processing.
type ErasureHook func(ctx context.Context, keys []schema.VisitKey) (map[string]int64, error)

// ExportHook lets another module contribute exported rows for the visits.
// The returned rows are merged into the result after core processing and
// replace any key already present.
type ExportHook func(ctx context.Context, keys []schema.VisitKey) (map[string][]schema.Row, error)

// DefaultWorkers is the default export fan-out.
const DefaultWorkers = 4

// Service erases and exports data subjects.
//
// Thread-safety: a Service holds no per-call state and may be shared.
// Each call builds its own resolver.
type Service struct {
	catalog   schema.TableCatalog
	dims      schema.DimensionRegistry
	exec      Executor
	anchors   schema.Anchors
	assembler *querysql.Assembler

	erasureHooks []ErasureHook
	exportHooks  []ExportHook

	workers      int
	logger       *slog.Logger
	decompressor transform.Decompressor
	ids          IDGenerator
}

// Option configures a Service.
type Option func(*Service)

// WithAnchors overrides schema.DefaultAnchors().
func WithAnchors(a schema.Anchors) Option {
	return func(s *Service) {
		s.anchors = a
	}
}

// WithTablePrefix sets the namespace prepended to logical table names.
// It must match the Executor's prefix.
func WithTablePrefix(prefix string) Option {
	return func(s *Service) {
		s.assembler = querysql.NewAssembler(prefix)
	}
}

// WithErasureHook registers an erasure hook. Hooks run in registration order.
func WithErasureHook(h ErasureHook) Option {
	return func(s *Service) {
		s.erasureHooks = append(s.erasureHooks, h)
	}
}

// WithExportHook registers an export hook. Hooks run in registration order.
func WithExportHook(h ExportHook) Option {
	return func(s *Service) {
		s.exportHooks = append(s.exportHooks, h)
	}
}

// WithWorkers bounds the number of concurrent export queries.
//
// Default: 4 (DefaultWorkers). Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDecompressor replaces the export decompressor.
// Default: transform.ZlibDecompressor.
func WithDecompressor(d transform.Decompressor) Option {
	return func(s *Service) {
		if d != nil {
			s.decompressor = d
		}
	}
}

// WithOperationIDs replaces the operation id generator.
// Default: UUIDv7Generator.
func WithOperationIDs(g IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

// New creates a Service over the given catalog, dimension registry and
// executor.
func New(catalog schema.TableCatalog, dims schema.DimensionRegistry, exec Executor, opts ...Option) *Service {
	s := &Service{
		catalog:      catalog,
		dims:         dims,
		exec:         exec,
		anchors:      schema.DefaultAnchors(),
		assembler:    querysql.NewAssembler(""),
		workers:      DefaultWorkers,
		logger:       slog.Default(),
		decompressor: transform.ZlibDecompressor{},
		ids:          UUIDv7Generator{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// begin allocates an operation id and its logger.
func (s *Service) begin(op string, keys []schema.VisitKey) (string, *slog.Logger) {
	id := s.ids.Generate()
	logger := s.logger.With("operation_id", id, "operation", op)
	logger.Debug("operation started", "visits", len(keys))
	return id, logger
}

// allTables fetches every registered table from the catalog.
func (s *Service) allTables(ctx context.Context, opID string) ([]schema.TableDescriptor, error) {
	tables, err := s.catalog.AllTables(ctx)
	if err != nil {
		return nil, &OperationError{Code: ErrCodeCatalog, OperationID: opID, Err: fmt.Errorf("list tables: %w", err)}
	}
	return tables, nil
}
