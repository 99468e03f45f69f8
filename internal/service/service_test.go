package service_test

import (
	"context"
	"testing"
	"time"

	"railseed/internal/service"
)

// ─────────────────────────────────────────────────────────────
// RunGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunGuard_TryLock(t *testing.T) {
	var g service.ExportedRunGuard

	if !g.TryLock("seed") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("seed") {
		t.Fatal("expected second TryLock for same run to fail")
	}
	if !g.Busy("seed") {
		t.Fatal("expected seed to be busy")
	}
	if !g.TryLock("other") {
		t.Fatal("expected TryLock for a different run to succeed")
	}
	g.Unlock("seed")
	g.Unlock("other")

	if g.Busy("seed") {
		t.Fatal("expected seed to be idle after unlock")
	}
	if !g.TryLock("seed") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("seed")
}

func TestRunGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunGuard

	if !g.TryLock("seed") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("seed")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestRunGuard_WaitAllHonoursContext(t *testing.T) {
	var g service.ExportedRunGuard
	g.TryLock("seed")
	defer g.Unlock("seed")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	g.WaitAll(ctx)
	if time.Since(start) > time.Second {
		t.Fatal("WaitAll ignored the context deadline")
	}
}
