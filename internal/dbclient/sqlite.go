package dbclient

import (
	"railseed/internal/domain"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN points at a SQLite file (Database holds the path, Host is
// accepted as a fallback) with a busy timeout for concurrent readers.
func buildSQLiteDSN(conn domain.DatabaseConnection) string {
	path := conn.Database
	if path == "" {
		path = conn.Host
	}
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
