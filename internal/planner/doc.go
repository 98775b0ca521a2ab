// Package planner computes the order in which registered tables are processed.
//
// Erasure is destructive: once a bridge table's rows are gone, every table
// that joined through it can no longer reach its visits. The planner orders
// tables so that each table comes before every table it bridges to, using
// Kahn's algorithm over the declared bridge graph:
//   - Edge A → B when A declares B as a bridge (A needs B to still exist)
//   - Among ready tables, those declaring bridges go first, then by name
//   - The action-link anchor is pinned second-to-last, the visit anchor last
//
// Bridge declarations that form a cycle cannot be ordered. The tables
// involved are appended after the ordered ones and reported on the Plan.
package planner
