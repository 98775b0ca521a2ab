// Package joinpath resolves how a registered table reaches an anchor table.
//
// Resolution is evaluated in priority order:
//  1. A visit join column joins straight to the visit anchor
//  2. An action join column joins straight to the action-link anchor
//  3. Bridge relations are tried in declared order; the first bridge that
//     resolves wins and its own path is spliced behind the bridge join
//  4. Otherwise the table is unresolvable
//
// Resolution is a pure function of the relationship graph. A Resolver
// memoizes results per table name and is meant to live for one operation.
// Cyclic bridge declarations are reported as a CycleError instead of
// recursing without bound.
package joinpath
