// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package syncqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/models"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// fakeApplier fails the first failN calls with err, then succeeds.
type fakeApplier struct {
	mu      sync.Mutex
	calls   []syncpkg.Change
	failN   int
	err     error
	applied chan syncpkg.Change
}

func newFakeApplier(failN int, err error) *fakeApplier {
	return &fakeApplier{failN: failN, err: err, applied: make(chan syncpkg.Change, 16)}
}

func (a *fakeApplier) Apply(_ context.Context, c syncpkg.Change) error {
	a.mu.Lock()
	a.calls = append(a.calls, c)
	fail := a.failN != 0
	if a.failN > 0 {
		a.failN--
	}
	a.mu.Unlock()

	if fail {
		return a.err
	}
	a.applied <- c
	return nil
}

func (a *fakeApplier) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		Driver:               "memory",
		Topic:                "index_sync_retry",
		PoisonTopic:          "index_sync_poison",
		RetryMaxRetries:      3,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		CloseTimeout:         time.Second,
	}
}

// startQueue builds a memory queue and serves it until the test ends.
func startQueue(t *testing.T, cfg *config.QueueConfig, journal *Journal, applier Applier) *Queue {
	t.Helper()
	q, err := New(cfg, journal, applier)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})

	select {
	case <-q.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not become ready")
	}
	return q
}

func waitApplied(t *testing.T, a *fakeApplier) syncpkg.Change {
	t.Helper()
	select {
	case c := <-a.applied:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("change was not applied")
		return syncpkg.Change{}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func journalEmpty(j *Journal) func() bool {
	return func() bool {
		n, err := j.Len()
		return err == nil && n == 0
	}
}

func TestQueue_ReplaysEnqueuedChange(t *testing.T) {
	t.Parallel()
	journal := openTestJournal(t, "")
	applier := newFakeApplier(0, nil)
	q := startQueue(t, testQueueConfig(), journal, applier)

	if err := q.Enqueue(context.Background(), syncpkg.WatchChange(1, 2)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got := waitApplied(t, applier)
	if got.ID == "" || got.Kind != syncpkg.ChangeWatch || got.UserID != 1 || got.MovieID != 2 {
		t.Errorf("applied change = %+v", got)
	}
	eventually(t, journalEmpty(journal), "journal entry was not acknowledged")
}

func TestQueue_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	journal := openTestJournal(t, "")
	applier := newFakeApplier(2, models.NewDependency("graph", "upsert_watched", errors.New("connection refused")))
	q := startQueue(t, testQueueConfig(), journal, applier)

	if err := q.Enqueue(context.Background(), syncpkg.MovieChange(5)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got := waitApplied(t, applier)
	if got.MovieID != 5 {
		t.Errorf("applied change = %+v", got)
	}
	if n := applier.callCount(); n < 3 {
		t.Errorf("apply calls = %d, want at least 3", n)
	}
	eventually(t, journalEmpty(journal), "journal entry was not acknowledged")
}

func TestQueue_DropsChangeThatCannotApply(t *testing.T) {
	t.Parallel()
	journal := openTestJournal(t, "")
	applier := newFakeApplier(-1, models.NewNotFound("user", 42))
	q := startQueue(t, testQueueConfig(), journal, applier)

	if err := q.Enqueue(context.Background(), syncpkg.UserChange(42)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	eventually(t, func() bool { return applier.callCount() >= 1 }, "change was never replayed")
	eventually(t, journalEmpty(journal), "missing-row change should be acknowledged")
	time.Sleep(20 * time.Millisecond)
	if n := applier.callCount(); n != 1 {
		t.Errorf("apply calls = %d, want 1 (no retries)", n)
	}
}

func TestQueue_ExhaustedChangeIsPoisonedAndStaysJournaled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	journal := openTestJournal(t, "")
	applier := newFakeApplier(-1, models.NewDependency("vector", "upsert", errors.New("disk full")))
	cfg := testQueueConfig()
	cfg.RetryMaxRetries = 1
	q := startQueue(t, cfg, journal, applier)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	poisoned, err := q.subscriber.Subscribe(subCtx, cfg.PoisonTopic)
	if err != nil {
		t.Fatalf("Subscribe poison topic: %v", err)
	}

	change := syncpkg.MovieChange(8)
	change.ID = "poison-me"
	if err := q.Enqueue(ctx, change); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case msg := <-poisoned:
		var got syncpkg.Change
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("poison payload: %v", err)
		}
		if got.ID != "poison-me" {
			t.Errorf("poisoned change = %+v", got)
		}
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("change never reached the poison topic")
	}

	entries, err := journal.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(entries) != 1 || entries[0].Change.ID != "poison-me" {
		t.Fatalf("journal = %+v, want the poisoned change", entries)
	}
	if entries[0].Attempts < 2 || entries[0].LastError == "" {
		t.Errorf("entry = %+v, want recorded attempts", entries[0])
	}
}

func TestQueue_RedrivesJournalOnStart(t *testing.T) {
	t.Parallel()
	journal := openTestJournal(t, "")
	left := syncpkg.FollowChange(3, 4)
	left.ID = "left-over"
	if err := journal.Append(context.Background(), left); err != nil {
		t.Fatalf("Append: %v", err)
	}

	applier := newFakeApplier(0, nil)
	startQueue(t, testQueueConfig(), journal, applier)

	got := waitApplied(t, applier)
	if got.ID != "left-over" || got.Kind != syncpkg.ChangeFollow {
		t.Errorf("applied change = %+v", got)
	}
	eventually(t, journalEmpty(journal), "redriven change was not acknowledged")
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	t.Parallel()
	journal := openTestJournal(t, "")
	q, err := New(testQueueConfig(), journal, newFakeApplier(0, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Enqueue(context.Background(), syncpkg.UserChange(1)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after close error = %v, want ErrQueueClosed", err)
	}
	if n, _ := journal.Len(); n != 0 {
		t.Errorf("journal holds %d entries, want 0", n)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	t.Parallel()
	cfg := testQueueConfig()
	cfg.Driver = "kafka"
	if _, err := New(cfg, openTestJournal(t, ""), newFakeApplier(0, nil)); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}
