// Package result holds the per-table results of an erasure or export.
//
// A ResultSet always presents its keys in reverse-lexicographic order, so
// detail tables such as log_visit list before log_action lookups and output
// is identical across runs regardless of execution order.
//
// MarshalCanonical renders exported values as deterministic JSON: object
// keys sorted by UTF-16 code units, strings NFC normalized, no HTML
// escaping. Unlike strict canonical JSON, null is allowed because SQL NULL
// is a legitimate exported value.
package result
