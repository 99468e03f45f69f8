package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"railseed/internal/domain"
	"railseed/internal/etl"
	"railseed/internal/storage"
)

// Observer receives every finished run report, successful or not.
type Observer interface {
	ObserveRun(r *Report)
}

// Loader drives one seeding run: normalize, map and dedupe each entity kind,
// then write both kinds inside a single transaction.
type Loader struct {
	db       *sql.DB
	store    *storage.SeedStore
	trains   TrainMapper
	log      *zap.Logger
	observer Observer
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for run progress.
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithTrainDefaults overrides the values given to fields trains lack.
func WithTrainDefaults(d TrainDefaults) LoaderOption {
	return func(l *Loader) { l.trains = TrainMapper{Defaults: d} }
}

// WithObserver registers an observer for run reports.
func WithObserver(o Observer) LoaderOption {
	return func(l *Loader) { l.observer = o }
}

// NewLoader creates a Loader writing through store into db.
func NewLoader(db *sql.DB, store *storage.SeedStore, opts ...LoaderOption) *Loader {
	l := &Loader{
		db:     db,
		store:  store,
		trains: TrainMapper{Defaults: DefaultTrainDefaults()},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run loads stations and trains. Either input may be nil. Records are
// mapped before the transaction opens, so only storage failures can fail
// the run; when one does, nothing from this run stays in the database.
func (l *Loader) Run(ctx context.Context, stations, trains *etl.Input) (*Report, error) {
	report := NewReport()
	log := l.log.With(zap.String("run_id", report.RunID))

	stationBatch := collect(l.records(stations, KindStations, StationColumns, log), MapStation, domain.StationCode, &report.Stations)
	trainBatch := collect(l.records(trains, KindTrains, TrainColumns, log), l.trains.Map, domain.TrainNumber, &report.Trains)
	log.Info("prepared batches", zap.Object("stations", report.Stations), zap.Object("trains", report.Trains))

	err := l.write(ctx, stationBatch.Items(), trainBatch.Items(), report, log)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Fail(err)
		log.Error("seeding failed", zap.Error(err), zap.Bool("rolled_back", report.RolledBack))
	} else {
		report.Status = StatusSuccess
		log.Info("seeding completed",
			zap.Object("stations", report.Stations),
			zap.Object("trains", report.Trains),
			zap.Duration("duration", report.Duration),
		)
	}
	if l.observer != nil {
		l.observer.ObserveRun(report)
	}
	return report, err
}

// kindRecords is the loose record set for one kind plus how it was found.
type kindRecords struct {
	records []etl.Record
	shape   string
}

func (l *Loader) records(in *etl.Input, kind string, rules []etl.ColumnRule, log *zap.Logger) kindRecords {
	if in.IsEmpty() {
		log.Info("no data supplied", zap.String("kind", kind))
		return kindRecords{}
	}
	label := in.Label
	if label == "" {
		label = kind
	}

	if in.Table != nil {
		columns := etl.NewColumnMap(in.Table.Columns, rules)
		log.Debug("resolved table columns",
			zap.String("label", label),
			zap.Strings("columns", in.Table.Columns),
			zap.Strings("fields", columns.Resolved()),
		)
		recs := make([]etl.Record, 0, len(in.Table.Rows))
		for _, row := range in.Table.Rows {
			if row == nil {
				continue
			}
			recs = append(recs, columns.Project(row))
		}
		return kindRecords{records: recs, shape: "table"}
	}

	recs, shape := etl.Classify(in.Document, label, log)
	return kindRecords{records: recs, shape: string(shape)}
}

// collect maps records and feeds them through a dedup batch, filling in
// the kind's counters.
func collect[T any](in kindRecords, mapFn func(etl.Record) (T, bool), key func(T) string, kr *KindReport) *etl.Batch[T] {
	batch := etl.NewBatch(key)
	kr.Shape = in.shape
	kr.Seen = len(in.records)
	for _, rec := range in.records {
		v, ok := mapFn(rec)
		if !ok {
			kr.Rejected++
			continue
		}
		batch.Add(v)
	}
	kr.Duplicates = batch.Duplicates()
	kr.Submitted = batch.Len()
	return batch
}

// write owns the connection and transaction for the run. Both are released
// on every path out, including panics.
func (l *Loader) write(ctx context.Context, stations []domain.Station, trains []domain.Train, report *Report, log *zap.Logger) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("rollback failed", zap.Error(rbErr))
			return
		}
		report.RolledBack = true
		report.Stations.Inserted = 0
		report.Trains.Inserted = 0
		log.Warn("transaction rolled back, no rows from this run were kept")
	}()

	if len(stations) > 0 {
		n, err := l.store.InsertStations(ctx, tx, stations)
		if err != nil {
			return fmt.Errorf("load stations: %w", err)
		}
		report.Stations.Inserted = n
		log.Info("stations submitted", zap.Int("rows", len(stations)), zap.Int64("inserted", n))
	}

	if len(trains) > 0 {
		n, err := l.store.InsertTrains(ctx, tx, trains)
		if err != nil {
			return fmt.Errorf("load trains: %w", err)
		}
		report.Trains.Inserted = n
		log.Info("trains submitted", zap.Int("rows", len(trains)), zap.Int64("inserted", n))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
