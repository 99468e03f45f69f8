package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// watchDebounce collapses the burst of events editors emit for one save.
const watchDebounce = 500 * time.Millisecond

// ── Watchers (cron + file_watch) ──────────────────────────

// Start begins the configured schedule: a cron expression, watched source
// files, or both. Runs triggered here use ctx as their parent.
func (s *SeedService) Start(ctx context.Context) error {
	s.stopWatchers()

	if expr := s.cfg.Schedule.Cron; expr != "" {
		c := cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(s.log.Named("cron")))))
		if _, err := c.AddFunc(expr, func() { s.trigger(ctx, "cron") }); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}
		c.Start()
		s.cronSched = c
		s.log.Info("cron scheduled", zap.String("expr", expr))
	}

	if len(s.cfg.Schedule.Watch) > 0 {
		if err := s.watch(ctx, s.cfg.Schedule.Watch); err != nil {
			s.stopWatchers()
			return err
		}
	}
	return nil
}

// trigger runs a seed from a background trigger, logging instead of
// returning the outcome.
func (s *SeedService) trigger(ctx context.Context, cause string) {
	log := s.log.With(zap.String("trigger", cause))
	log.Info("starting scheduled run")
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			log.Warn("skipped, previous run still in progress")
			return
		}
		log.Error("scheduled run failed", zap.Error(err))
	}
}

// watch re-runs the seed when any of paths is written or recreated. The
// parent directories are watched so editors that replace files on save are
// still seen.
func (s *SeedService) watch(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("bad watch path %q: %w", p, err)
		}
		watched[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch dir %q: %w", dir, err)
		}
		dirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel
	done := make(chan struct{})
	s.watchDone = done

	go func() {
		defer close(done)
		// One timer for all files: any change re-reads both datasets.
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				abs, _ := filepath.Abs(event.Name)
				if !watched[abs] {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					if watchCtx.Err() != nil {
						return
					}
					s.log.Info("source file changed", zap.String("path", abs))
					s.trigger(watchCtx, "file_watch")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("watcher error", zap.Error(err))
			}
		}
	}()

	s.log.Info("watching source files", zap.Int("files", len(watched)))
	return nil
}

// Stop tears down all watchers and schedulers. It does not wait for an
// in-flight run; use WaitRunning for that.
func (s *SeedService) Stop() {
	s.stopWatchers()
}

func (s *SeedService) stopWatchers() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.watchDone != nil {
		<-s.watchDone
		s.watchDone = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
