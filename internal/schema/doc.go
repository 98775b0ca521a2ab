// Package schema provides the data model shared by every datasubjects package.
//
// This package contains type definitions and the capability interfaces the
// engine consumes. All other internal packages import schema; schema imports
// nothing internal.
//
// Key design constraints:
//   - Table descriptors are supplied fresh by a TableCatalog on every call
//     and are never mutated by the engine
//   - Bridge order is significant: it is the priority order tried during
//     join-path resolution
//   - Every identifier that reaches SQL passes ValidIdentifier first
package schema
