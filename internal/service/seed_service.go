package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"railseed/internal/config"
	"railseed/internal/dbclient"
	"railseed/internal/domain"
	"railseed/internal/etl"
	_ "railseed/internal/etl/sources"
	"railseed/internal/metrics"
	"railseed/internal/seed"
	"railseed/internal/storage"
	"railseed/internal/storage/history"
)

// ─────────────────────────────────────────────────────────────
// Seed Service: runs the loader against configured sources
// ─────────────────────────────────────────────────────────────

// ErrRunInProgress is returned when a run is requested while another one
// is still executing.
var ErrRunInProgress = errors.New("a seeding run is already in progress")

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

const seedRun = "seed"

// Opener connects to the target database.
type Opener func(ctx context.Context, conn domain.DatabaseConnection) (*dbclient.Client, error)

// SeedService owns everything around a seeding run: reading the sources,
// the database connection, the overlap guard and the schedule.
type SeedService struct {
	cfg      *config.Config
	log      *zap.Logger
	recorder *metrics.Recorder
	open     Opener
	history  *history.Store
	guard    runGuard

	mu   sync.RWMutex
	last *seed.Report

	// watcher / cron lifecycle
	watchCancel context.CancelFunc
	watchDone   chan struct{}
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// Option customizes a SeedService.
type Option func(*SeedService)

// WithRecorder shares a metrics recorder with the service.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *SeedService) { s.recorder = r }
}

// WithOpener replaces the database connector.
func WithOpener(open Opener) Option {
	return func(s *SeedService) { s.open = open }
}

// WithHistory records every run in store and restores the last report
// from it.
func WithHistory(store *history.Store) Option {
	return func(s *SeedService) { s.history = store }
}

// NewSeedService creates a SeedService ready for use.
func NewSeedService(cfg *config.Config, log *zap.Logger, opts ...Option) *SeedService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SeedService{
		cfg:  cfg,
		log:  log,
		open: dbclient.Open,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil {
		s.recorder = metrics.NewRecorder()
	}
	if s.history != nil {
		last, err := s.history.Latest(context.Background())
		switch {
		case err == nil:
			s.last = last
		case !errors.Is(err, history.ErrNotFound):
			s.log.Warn("failed to restore last run", zap.Error(err))
		}
	}
	return s
}

// Recorder returns the metrics recorder the service reports to.
func (s *SeedService) Recorder() *metrics.Recorder { return s.recorder }

// ── Run ────────────────────────────────────────────────────

// RunOnce performs one seeding run. It fails fast with ErrRunInProgress if
// another run is executing. The returned report is non-nil whenever the run
// started, including failed runs.
func (s *SeedService) RunOnce(ctx context.Context) (*seed.Report, error) {
	if !s.guard.TryLock(seedRun) {
		return nil, ErrRunInProgress
	}
	defer s.guard.Unlock(seedRun)

	s.recorder.SetRunning(true)
	defer s.recorder.SetRunning(false)

	if timeout := s.cfg.GetLoadTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := s.run(ctx)
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.history != nil {
		// The run context may already be done; the record must still land.
		if recErr := s.history.Record(context.WithoutCancel(ctx), report); recErr != nil {
			s.log.Warn("failed to record run", zap.String("run_id", report.RunID), zap.Error(recErr))
		}
	}
	return report, err
}

func (s *SeedService) run(ctx context.Context) (*seed.Report, error) {
	stations, err := s.fetch(ctx, seed.KindStations, s.cfg.Sources.Stations)
	if err != nil {
		return s.abort(err), err
	}
	trains, err := s.fetch(ctx, seed.KindTrains, s.cfg.Sources.Trains)
	if err != nil {
		return s.abort(err), err
	}

	client, err := s.open(ctx, s.cfg.Database)
	if err != nil {
		err = fmt.Errorf("connect: %w", err)
		return s.abort(err), err
	}
	defer client.Close()

	store := storage.NewSeedStore(client.Dialect, s.cfg.Load.MaxBatchRows)
	loader := seed.NewLoader(client.DB, store,
		seed.WithLogger(s.log),
		seed.WithTrainDefaults(s.cfg.Load.TrainDefaults),
		seed.WithObserver(s.recorder),
	)
	return loader.Run(ctx, stations, trains)
}

// fetch reads one kind's dataset. A kind without a source is skipped.
func (s *SeedService) fetch(ctx context.Context, kind string, src *config.SourceConfig) (*etl.Input, error) {
	if src == nil {
		s.log.Info("no source configured", zap.String("kind", kind))
		return nil, nil
	}
	in, err := etl.Fetch(ctx, src.Type, src.Config, kind)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return in, nil
}

// abort reports a run that failed before the loader took over. Nothing was
// written, so there is nothing to roll back.
func (s *SeedService) abort(err error) *seed.Report {
	report := seed.NewReport()
	report.Fail(err)
	s.log.Error("seeding aborted", zap.String("run_id", report.RunID), zap.Error(err))
	s.recorder.ObserveRun(report)
	return report
}

// LastReport returns the report of the most recent run, or nil.
func (s *SeedService) LastReport() *seed.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// History returns up to limit past runs, newest first. Without a history
// store only the last run of this process is known.
func (s *SeedService) History(ctx context.Context, limit int) ([]*seed.Report, error) {
	if s.history != nil {
		return s.history.List(ctx, limit)
	}
	if last := s.LastReport(); last != nil {
		return []*seed.Report{last}, nil
	}
	return []*seed.Report{}, nil
}

// Run returns the report of one run by id.
func (s *SeedService) Run(ctx context.Context, runID string) (*seed.Report, error) {
	if last := s.LastReport(); last != nil && last.RunID == runID {
		return last, nil
	}
	if s.history == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	report, err := s.history.Get(ctx, runID)
	if errors.Is(err, history.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return report, err
}

// Running reports whether a run is executing.
func (s *SeedService) Running() bool {
	return s.guard.Busy(seedRun)
}

// ListSources returns the available source descriptors.
func (s *SeedService) ListSources() []etl.SourceSpec {
	return etl.ListSources()
}

// WaitRunning blocks until the running seed finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *SeedService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}
