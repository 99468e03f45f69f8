package dbclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"railseed/internal/domain"
)

// Dialect renders the few driver-specific pieces of SQL the loader needs.
type Dialect struct {
	Driver domain.DatabaseDriver
}

// maxParams is the bound-parameter limit per statement for each driver.
var maxParams = map[domain.DatabaseDriver]int{
	domain.DatabaseDriverPostgres: 65535,
	domain.DatabaseDriverMySQL:    65535,
	domain.DatabaseDriverSQLite:   32766,
}

// MaxRows returns how many rows of the given width fit in one statement,
// capped at limit when limit > 0.
func (d Dialect) MaxRows(columns, limit int) int {
	if columns <= 0 {
		return limit
	}
	n := maxParams[d.Driver]
	if n == 0 {
		n = 999
	}
	rows := n / columns
	if limit > 0 && limit < rows {
		return limit
	}
	return rows
}

func (d Dialect) placeholder(n int) string {
	if d.Driver == domain.DatabaseDriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// InsertIgnore builds a multi-row INSERT that leaves existing rows with the
// same conflict key untouched. Postgres and SQLite use ON CONFLICT DO
// NOTHING; MySQL has no targeted form, so the duplicate-key branch assigns
// the primary key to itself, which is a no-op.
func (d Dialect) InsertIgnore(table string, columns []string, conflict string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.placeholder(n))
			n++
		}
		b.WriteByte(')')
	}

	switch d.Driver {
	case domain.DatabaseDriverMySQL:
		fmt.Fprintf(&b, " ON DUPLICATE KEY UPDATE %s = %s", columns[0], columns[0])
	default:
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", conflict)
	}
	return b.String()
}

// StringList encodes a list column: a native TEXT[] on Postgres, JSON text
// elsewhere.
func (d Dialect) StringList(v []string) (any, error) {
	if v == nil {
		v = []string{}
	}
	if d.Driver == domain.DatabaseDriverPostgres {
		return pq.Array(v), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}
