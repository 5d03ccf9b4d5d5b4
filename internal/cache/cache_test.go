// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/reelgraph/internal/metrics"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.Now
	return c, clock
}

func TestCacheBasicOperations(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(time.Minute)

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Fatal("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, exists := c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if c.HitRate() != 50 {
		t.Errorf("hit rate = %v, want 50", c.HitRate())
	}
}

func TestCacheExpiration(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache(time.Minute)

	c.SetWithTTL("short", 1, 10*time.Second)
	c.Set("long", 2)

	clock.Advance(11 * time.Second)
	if _, ok := c.Get("short"); ok {
		t.Error("Expected short to be expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("Expected long to survive")
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want expired entry removed on Get", c.Len())
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(time.Minute)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	c.Delete("key1")
	c.Delete("missing")
	if _, ok := c.Get("key1"); ok {
		t.Error("Expected key1 to be deleted")
	}

	c.Clear()
	for _, key := range []string{"key2", "key3"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("Expected %s to be cleared", key)
		}
	}
	if got := c.GetStats().Evictions; got != 3 {
		t.Errorf("evictions = %d, want 3", got)
	}
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache(time.Minute)

	c.SetWithTTL("a", 1, time.Second)
	c.SetWithTTL("b", 2, time.Second)
	c.SetWithTTL("c", 3, time.Hour)
	clock.Advance(2 * time.Second)

	if n := c.Cleanup(); n != 2 {
		t.Errorf("Cleanup removed %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
	if c.GetStats().LastCleanup != clock.Now() {
		t.Error("LastCleanup not updated")
	}
}

func TestGetOrLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, clock := newTestCache(time.Minute)

	var loads int
	load := func(context.Context) (interface{}, error) {
		loads++
		return loads, nil
	}

	v, err := c.GetOrLoad(ctx, "user_recommendations:alice", 10*time.Minute, load)
	if err != nil || v != 1 {
		t.Fatalf("first load = %v, %v", v, err)
	}
	v, err = c.GetOrLoad(ctx, "user_recommendations:alice", 10*time.Minute, load)
	if err != nil || v != 1 {
		t.Fatalf("cached load = %v, %v", v, err)
	}
	if loads != 1 {
		t.Fatalf("loader called %d times before expiry, want 1", loads)
	}

	clock.Advance(10*time.Minute + time.Second)
	v, err = c.GetOrLoad(ctx, "user_recommendations:alice", 10*time.Minute, load)
	if err != nil || v != 2 {
		t.Fatalf("load after expiry = %v, %v", v, err)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(time.Minute)

	boom := errors.New("graph down")
	_, err := c.GetOrLoad(ctx, "k", time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Fatal("error result was cached")
	}

	v, err := c.GetOrLoad(ctx, "k", time.Minute, func(context.Context) (interface{}, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("retry = %v, %v", v, err)
	}
}

func TestGetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make(chan interface{}, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "shared", time.Minute, load)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
			results <- v
		}()
	}

	// Let the goroutines pile up behind the first load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		if v != "v" {
			t.Errorf("result = %v", v)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestGetOrLoadSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (interface{}, error) {
		close(started)
		select {
		case <-release:
			return "v", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(firstCtx, "shared", time.Minute, load)
		firstErr <- err
	}()
	<-started

	second := make(chan interface{}, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "shared", time.Minute, load)
		if err != nil {
			t.Errorf("second waiter: %v", err)
		}
		second <- v
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller err = %v, want context.Canceled", err)
	}

	// Let the second waiter join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(release)
	if v := <-second; v != "v" {
		t.Errorf("second waiter = %v, want v", v)
	}
	if v, ok := c.Get("shared"); !ok || v != "v" {
		t.Errorf("cached = %v, %v; want v", v, ok)
	}
}

func TestGetOrLoadBoundedByLoadTimeout(t *testing.T) {
	t.Parallel()
	c := New(time.Minute)
	c.SetLoadTimeout(20 * time.Millisecond)

	_, err := c.GetOrLoad(context.Background(), "slow", time.Minute, func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		prefix string
		parts  []interface{}
		want   string
	}{
		{"user_recommendations", []interface{}{"alice"}, "user_recommendations:alice"},
		{"movie_recommendations", []interface{}{int64(42), true, 10}, "movie_recommendations:42:true:10"},
		{"bare", nil, "bare"},
	}
	for _, tt := range tests {
		if got := GenerateKey(tt.prefix, tt.parts...); got != tt.want {
			t.Errorf("GenerateKey(%q, %v) = %q, want %q", tt.prefix, tt.parts, got, tt.want)
		}
	}
}

func TestCacheMetricsUseKeyPrefix(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	hits := metrics.CacheHits.WithLabelValues("metrics_prefix_test")
	misses := metrics.CacheMisses.WithLabelValues("metrics_prefix_test")
	hitsBefore, missesBefore := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	c.Get("metrics_prefix_test:x")
	c.Set("metrics_prefix_test:x", 1)
	c.Get("metrics_prefix_test:x")

	if got := testutil.ToFloat64(hits) - hitsBefore; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(misses) - missesBefore; got != 1 {
		t.Errorf("misses delta = %v, want 1", got)
	}
	if cacheType("nocolon") != "other" {
		t.Errorf("cacheType without prefix = %q", cacheType("nocolon"))
	}
}

func TestJanitorStopsOnCancel(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache(time.Minute)
	c.SetWithTTL("gone", 1, time.Millisecond)
	clock.Advance(time.Second)

	j := NewJanitor(c, 5*time.Millisecond)
	if j.String() != "cache-janitor" {
		t.Errorf("String = %q", j.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("janitor did not sweep expired entry")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
