package storage

import (
	"context"
	"fmt"

	"railseed/internal/dbclient"
	"railseed/internal/domain"
)

// Schema returns the DDL of the stations and trains tables the loader
// expects, in the given dialect. Production databases already carry these
// tables; this is for disposable stores in tests and local development.
// Every statement is idempotent.
func Schema(driver domain.DatabaseDriver) ([]string, error) {
	switch driver {
	case domain.DatabaseDriverPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS stations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				code TEXT NOT NULL UNIQUE,
				city TEXT NOT NULL,
				latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
				longitude DOUBLE PRECISION NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS trains (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				number TEXT NOT NULL UNIQUE,
				type TEXT NOT NULL,
				total_seats INTEGER NOT NULL,
				amenities TEXT[] NOT NULL DEFAULT '{}',
				active BOOLEAN NOT NULL DEFAULT TRUE
			)`,
		}, nil
	case domain.DatabaseDriverMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS stations (
				id VARCHAR(128) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				code VARCHAR(124) NOT NULL UNIQUE,
				city VARCHAR(255) NOT NULL,
				latitude DOUBLE NOT NULL DEFAULT 0,
				longitude DOUBLE NOT NULL DEFAULT 0
			) CHARACTER SET utf8mb4`,
			`CREATE TABLE IF NOT EXISTS trains (
				id VARCHAR(128) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				number VARCHAR(124) NOT NULL UNIQUE,
				type VARCHAR(64) NOT NULL,
				total_seats INT NOT NULL,
				amenities JSON NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE
			) CHARACTER SET utf8mb4`,
		}, nil
	case domain.DatabaseDriverSQLite:
		return []string{
			`CREATE TABLE IF NOT EXISTS stations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				code TEXT NOT NULL UNIQUE,
				city TEXT NOT NULL,
				latitude REAL NOT NULL DEFAULT 0,
				longitude REAL NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS trains (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				number TEXT NOT NULL UNIQUE,
				type TEXT NOT NULL,
				total_seats INTEGER NOT NULL,
				amenities TEXT NOT NULL DEFAULT '[]',
				active BOOLEAN NOT NULL DEFAULT 1
			)`,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}
}

// Migrate creates the stations and trains tables when they are missing.
// Seeding runs never call it.
func Migrate(ctx context.Context, ex dbclient.Execer, driver domain.DatabaseDriver) error {
	stmts, err := Schema(driver)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
