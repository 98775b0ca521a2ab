package transform

import (
	"fmt"
	"sort"

	"github.com/roach88/datasubjects/internal/querysql"
	"github.com/roach88/datasubjects/internal/schema"
)

// urlPrefixes maps stored url_prefix codes to the scheme and host prefix
// stripped from the action name when it was recorded.
var urlPrefixes = map[int64]string{
	0: "http://",
	1: "http://www.",
	2: "https://",
	3: "https://www.",
}

// EnrichmentKey returns the result key under which the action names
// referenced by ownerTable.ownerColumn are exported.
func EnrichmentKey(actionTable, ownerTable, ownerColumn string) string {
	return fmt.Sprintf("%s_%s_%s", actionTable, ownerTable, ownerColumn)
}

// ActionNameRows normalizes rows produced by an action-name lookup.
//
// Each output row carries idaction and name only. The stored url prefix is
// folded back into the name. Duplicate rows are dropped and the result is
// sorted by idaction ascending.
func ActionNameRows(rows []schema.Row) []schema.Row {
	type entry struct {
		id   int64
		name any
	}

	seen := make(map[string]bool, len(rows))
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		id, _ := Int64(row[querysql.ActionIDColumn])
		name := textValue(row[querysql.ActionNameColumn])
		if code, ok := Int64(row[querysql.ActionURLPrefixColumn]); ok {
			if prefix, known := urlPrefixes[code]; known {
				if s, isString := name.(string); isString {
					name = prefix + s
				}
			}
		}

		key := fmt.Sprintf("%d\x00%#v", id, name)
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, entry{id: id, name: name})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].id < entries[j].id
	})

	out := make([]schema.Row, len(entries))
	for i, e := range entries {
		out[i] = schema.Row{
			querysql.ActionIDColumn:   e.id,
			querysql.ActionNameColumn: e.name,
		}
	}
	return out
}
