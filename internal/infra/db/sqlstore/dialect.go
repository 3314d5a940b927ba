package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour a repository talks to.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver: %q", driver)
}

// Rebind rewrites ? placeholders into $n for Postgres. Queries in this
// package never contain literal question marks.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// lockAnalysisQuery row-locks an analysis inside a transaction so concurrent
// writers for the same analysis queue up. SQLite serialises writers itself.
func (d Dialect) lockAnalysisQuery() string {
	if d == SQLite {
		return ""
	}
	return d.Rebind("SELECT id FROM analyses WHERE id = ? FOR UPDATE")
}
