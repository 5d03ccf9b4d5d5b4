// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/reelgraph/internal/logging"
)

// Janitor periodically removes expired entries. It implements suture.Service.
type Janitor struct {
	cache    *Cache
	interval time.Duration
}

// NewJanitor sweeps c every interval (1 minute when interval <= 0).
func NewJanitor(c *Cache, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{cache: c, interval: interval}
}

// Serve runs until ctx is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.cache.Cleanup(); n > 0 {
				logging.Debug().Int("evicted", n).Msg("Cache cleanup")
			}
		}
	}
}

// String names the service in supervisor logs.
func (j *Janitor) String() string {
	return "cache-janitor"
}
