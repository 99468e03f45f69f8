package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"railseed/internal/domain"
)

// Client is an open SQL database together with the dialect used to talk
// to it.
type Client struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open creates a Client for the given connection and verifies connectivity.
func Open(ctx context.Context, conn domain.DatabaseConnection) (*Client, error) {
	driverName, dsn, err := dataSource(conn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conn.Driver, err)
	}
	// A seeding run uses a single connection; keep a small pool for the
	// database source and the control server.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if conn.Driver == domain.DatabaseDriverSQLite {
		// SQLite only supports one writer; in-memory databases are also
		// private to a connection.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", conn.Driver, err)
	}

	return &Client{DB: db, Dialect: Dialect{Driver: conn.Driver}}, nil
}

// Close closes the underlying pool.
func (c *Client) Close() error {
	return c.DB.Close()
}

// dataSource returns the database/sql driver name and DSN for conn.
func dataSource(conn domain.DatabaseConnection) (string, string, error) {
	switch conn.Driver {
	case domain.DatabaseDriverPostgres:
		if conn.URL != "" {
			return "postgres", conn.URL, nil
		}
		return "postgres", buildPostgresDSN(conn), nil
	case domain.DatabaseDriverMySQL:
		if conn.URL != "" {
			return "mysql", conn.URL, nil
		}
		return "mysql", buildMySQLDSN(conn), nil
	case domain.DatabaseDriverSQLite:
		if conn.URL != "" {
			return "sqlite", conn.URL, nil
		}
		return "sqlite", buildSQLiteDSN(conn), nil
	default:
		return "", "", fmt.Errorf("unsupported driver: %q", conn.Driver)
	}
}
