package sources

import (
	"context"
	"fmt"

	"railseed/internal/dbclient"
	"railseed/internal/domain"
	"railseed/internal/etl"
)

// ── Database Source ────────────────────────────────────────
// Runs a read query against any supported SQL database and hands the
// result over as a table. Column names are matched by the tabular mapper.

type databaseSource struct{}

func init() { etl.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "database",
		Label: "Database Query",
		ConfigFields: []etl.ConfigField{
			{Key: "driver", Label: "Driver", Type: "select", Required: true, Options: []string{"postgres", "mysql", "sqlite"}},
			{Key: "dsn", Label: "DSN", Type: "password", Required: true, Help: "Driver connection string, or a file path for sqlite"},
			{Key: "query", Label: "Query", Type: "string", Required: true, Help: "Read-only SELECT returning one row per entity"},
		},
	}
}

func (s *databaseSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Input, error) {
	driver := cfg.String("driver")
	dsn := cfg.String("dsn")
	query := cfg.String("query")
	if driver == "" || dsn == "" || query == "" {
		return nil, fmt.Errorf("driver, dsn and query are required")
	}

	client, err := dbclient.Open(ctx, domain.DatabaseConnection{
		Driver: domain.DatabaseDriver(driver),
		URL:    dsn,
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()

	page, err := client.FetchAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return &etl.Input{Table: &etl.Table{Columns: page.Columns, Rows: page.Rows}}, nil
}
