// Package subject erases and exports the data recorded for a set of visits.
//
// Service drives the whole operation: it reads every registered table from
// the catalog, orders them so bridge tables outlive the tables that join
// through them, resolves each table's join path, and hands the assembled
// statements to an Executor.
//
// # Erasure
//
// DeleteDataSubjects runs strictly sequentially in processing order. Every
// join path is resolved before the first delete, so an unresolvable table
// fails the call without touching any row. Erasure hooks run first and seed
// the result; the core's own counts replace any key a hook also reported.
//
// # Export
//
// ExportDataSubjects is best-effort: tables that cannot be resolved are
// logged and left out. Table queries fan out over a bounded worker pool,
// rows are normalized by package transform, action-name dimensions are
// enriched, and export hooks are merged last.
//
// Both operations return immediately with an empty result, without calling
// the Executor, when no visit keys are given.
package subject
