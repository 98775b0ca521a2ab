package result

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/datasubjects/internal/schema"
)

// ResultSet maps a table name, or a synthetic key contributed by a hook or
// the enrichment pass, to its result.
type ResultSet[T any] map[string]T

// Counts maps a table to the number of rows erased from it.
type Counts = ResultSet[int64]

// Exports maps a table to its exported rows.
type Exports = ResultSet[[]schema.Row]

// Keys returns the keys in reverse-lexicographic order.
func (r ResultSet[T]) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return strings.Compare(b, a)
	})
	return keys
}

// Merge copies every entry of m into r, replacing existing keys.
func (r ResultSet[T]) Merge(m map[string]T) {
	for k, v := range m {
		r[k] = v
	}
}

// MarshalJSON emits an object whose keys follow Keys().
func (r ResultSet[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalString(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalCanonical(r[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Total sums the counts of every key.
func Total(c Counts) int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// RowCount returns the number of rows across every key.
func RowCount(e Exports) int {
	n := 0
	for _, rows := range e {
		n += len(rows)
	}
	return n
}
