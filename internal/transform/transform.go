package transform

import (
	"encoding/hex"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/roach88/datasubjects/internal/schema"
)

// Transformer normalizes the rows exported from one or more tables.
// It is safe for concurrent use when its Decompressor is.
type Transformer struct {
	dims         map[dimensionKey]schema.Dimension
	decompressor Decompressor
	logger       *slog.Logger
}

type dimensionKey struct {
	table, column string
}

// New creates a Transformer for the registered dimensions. A nil
// decompressor defaults to ZlibDecompressor and a nil logger to
// slog.Default().
func New(dims []schema.Dimension, d Decompressor, logger *slog.Logger) *Transformer {
	if d == nil {
		d = ZlibDecompressor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	byColumn := make(map[dimensionKey]schema.Dimension, len(dims))
	for _, dim := range dims {
		byColumn[dimensionKey{dim.OwnerTable(), dim.OwnerColumn()}] = dim
	}
	return &Transformer{dims: byColumn, decompressor: d, logger: logger}
}

// Rows transforms rows of table in place and returns them.
// columns are the table's physical columns; values of columns not listed
// there, such as an idsite borrowed from a joined table, are only
// decompressed.
func (t *Transformer) Rows(table string, columns []schema.ColumnInfo, rows []schema.Row) []schema.Row {
	binary := make(map[string]bool, len(columns))
	for _, c := range columns {
		binary[c.Name] = c.Binary
	}

	for _, row := range rows {
		siteID, _ := Int64(row[schema.SiteColumn])
		for col, raw := range row {
			row[col] = t.value(table, col, raw, binary[col], siteID)
		}
	}
	return rows
}

func (t *Transformer) value(table, column string, raw any, binary bool, siteID int64) any {
	dim, hasDim := t.dims[dimensionKey{table, column}]
	if hasDim && dim.IsBinary() {
		binary = true
	}

	if hasDim {
		v, err := dim.FormatValue(raw, siteID)
		if err == nil {
			return v
		}
		t.logger.Warn("dimension format failed, keeping stored value",
			"table", table,
			"column", column,
			"error", err)
		if binary {
			return hexValue(raw)
		}
		return textValue(raw)
	}

	if binary {
		return hexValue(raw)
	}
	return t.decompress(raw)
}

// decompress returns the inflated text of raw, or raw itself when it is
// empty or not compressed.
func (t *Transformer) decompress(raw any) any {
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return raw
	}
	if len(b) == 0 {
		return textValue(raw)
	}
	if out, err := t.decompressor.Decompress(b); err == nil {
		return string(out)
	}
	return textValue(raw)
}

func hexValue(raw any) any {
	switch v := raw.(type) {
	case []byte:
		return hex.EncodeToString(v)
	case string:
		return hex.EncodeToString([]byte(v))
	default:
		return raw
	}
}

// textValue converts driver bytes of a non-binary column to a string.
// Bytes that are not valid UTF-8 are hex encoded.
func textValue(raw any) any {
	b, ok := raw.([]byte)
	if !ok {
		return raw
	}
	if !utf8.Valid(b) {
		return hex.EncodeToString(b)
	}
	return string(b)
}

// Int64 converts a driver value holding an integer.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
