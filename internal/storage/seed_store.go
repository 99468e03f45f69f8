package storage

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"railseed/internal/dbclient"
	"railseed/internal/domain"
)

// SeedStore writes canonical stations and trains with insert-or-ignore
// semantics: rows whose natural key already exists are left untouched.
// It never opens transactions itself; callers pass the transaction (or any
// Execer) to write through.
type SeedStore struct {
	dialect  dbclient.Dialect
	maxBatch int
}

// NewSeedStore creates a SeedStore. maxBatch caps rows per statement
// (0 means only the driver's parameter limit applies).
func NewSeedStore(dialect dbclient.Dialect, maxBatch int) *SeedStore {
	return &SeedStore{dialect: dialect, maxBatch: maxBatch}
}

var (
	stationColumns = []string{"id", "name", "code", "city", "latitude", "longitude"}
	trainColumns   = []string{"id", "name", "number", "type", "total_seats", "amenities", "active"}
)

// InsertStations submits stations and returns the number of rows the
// database actually inserted.
func (s *SeedStore) InsertStations(ctx context.Context, ex dbclient.Execer, stations []domain.Station) (int64, error) {
	rows := lo.Map(stations, func(st domain.Station, _ int) []any {
		return []any{st.ID, st.Name, st.Code, st.City, st.Latitude, st.Longitude}
	})
	return s.insertIgnore(ctx, ex, "stations", stationColumns, "code", rows)
}

// InsertTrains submits trains and returns the number of rows inserted.
func (s *SeedStore) InsertTrains(ctx context.Context, ex dbclient.Execer, trains []domain.Train) (int64, error) {
	rows := make([][]any, 0, len(trains))
	for _, t := range trains {
		amenities, err := s.dialect.StringList(t.Amenities)
		if err != nil {
			return 0, fmt.Errorf("train %s: %w", t.Number, err)
		}
		rows = append(rows, []any{t.ID, t.Name, t.Number, t.Type, t.TotalSeats, amenities, t.Active})
	}
	return s.insertIgnore(ctx, ex, "trains", trainColumns, "number", rows)
}

func (s *SeedStore) insertIgnore(ctx context.Context, ex dbclient.Execer, table string, columns []string, conflict string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int64
	for _, chunk := range lo.Chunk(rows, s.dialect.MaxRows(len(columns), s.maxBatch)) {
		query := s.dialect.InsertIgnore(table, columns, conflict, len(chunk))
		res, err := ex.ExecContext(ctx, query, lo.Flatten(chunk)...)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	return inserted, nil
}
