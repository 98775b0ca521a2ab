// Package transform normalizes exported rows.
//
// Binary columns are re-encoded as lowercase hex, columns owned by a
// registered dimension are replaced by the dimension's formatted value, and
// every other non-empty value is tentatively decompressed. A value that does
// not decompress is kept as is; this is the common case, not an error.
//
// The package also normalizes the rows produced by the action-name
// enrichment lookup (see ActionNameRows).
package transform
