// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

type fakeRebuilder struct {
	calls chan struct{}
	err   error
}

func newFakeRebuilder(err error) *fakeRebuilder {
	return &fakeRebuilder{calls: make(chan struct{}, 16), err: err}
}

func (f *fakeRebuilder) FullRebuild(context.Context) (syncpkg.RebuildReport, error) {
	f.calls <- struct{}{}
	return syncpkg.RebuildReport{}, f.err
}

func runReconciler(t *testing.T, svc *ReconcileService) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitCall(t *testing.T, f *fakeRebuilder) {
	t.Helper()
	select {
	case <-f.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("FullRebuild was not called")
	}
}

func TestReconcileService_Interface(t *testing.T) {
	var _ suture.Service = (*ReconcileService)(nil)
	if got := NewReconcileService(newFakeRebuilder(nil), ReconcileServiceConfig{}).String(); got != "index-reconciler" {
		t.Errorf("String() = %q", got)
	}
}

func TestReconcileService_RebuildOnStartup(t *testing.T) {
	t.Parallel()
	f := newFakeRebuilder(nil)
	cancel, done := runReconciler(t, NewReconcileService(f, ReconcileServiceConfig{RebuildOnStartup: true}))

	waitCall(t, f)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("unexpected extra rebuilds: %d", len(f.calls))
	}
}

func TestReconcileService_DisabledWaitsForCancel(t *testing.T) {
	t.Parallel()
	f := newFakeRebuilder(nil)
	cancel, done := runReconciler(t, NewReconcileService(f, ReconcileServiceConfig{}))

	select {
	case <-f.calls:
		t.Fatal("no rebuild expected when disabled")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

func TestReconcileService_PeriodicSurvivesFailures(t *testing.T) {
	t.Parallel()
	f := newFakeRebuilder(errors.New("neo4j unavailable"))
	cancel, done := runReconciler(t, NewReconcileService(f, ReconcileServiceConfig{Interval: 10 * time.Millisecond}))

	waitCall(t, f)
	waitCall(t, f)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

func TestReconcileService_SkipsWhenRebuildRunning(t *testing.T) {
	t.Parallel()
	f := newFakeRebuilder(syncpkg.ErrRebuildInProgress)
	cancel, done := runReconciler(t, NewReconcileService(f, ReconcileServiceConfig{
		RebuildOnStartup: true,
		Interval:         10 * time.Millisecond,
	}))

	waitCall(t, f)
	waitCall(t, f)
	cancel()
	<-done
}
