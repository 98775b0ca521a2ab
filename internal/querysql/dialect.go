package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavor statements are rendered in.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// Dialects lists every supported dialect.
var Dialects = []Dialect{SQLite, MySQL, Postgres}

// ParseDialect validates a driver name.
func ParseDialect(s string) (Dialect, error) {
	for _, d := range Dialects {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unsupported driver %q: must be one of %v", s, Dialects)
}

// rebind rewrites ? placeholders for dialects that number them.
// Statements built by this package contain no string literals, so every ?
// is a placeholder.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
