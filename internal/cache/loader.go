// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package cache

import (
	"context"
	"time"
)

// DefaultLoadTimeout bounds a shared load once it is detached from the
// caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// Loader computes a value on a cache miss.
type Loader func(ctx context.Context) (interface{}, error)

// GetOrLoad returns the cached value for key or calls load and caches its
// result for ttl. Concurrent misses on one key share a single load call.
// Errors are returned to every waiter and never cached.
//
// The shared load keeps the caller's values but not its cancellation, and is
// bounded by the load timeout instead. A waiter whose ctx ends stops waiting
// with ctx.Err() without failing the others.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.loads.DoChan(key, func() (interface{}, error) {
		// A load that finished just before this one started already stored it.
		c.mu.RLock()
		entry, ok := c.entries[key]
		timeout := c.loadTimeout
		c.mu.RUnlock()
		if ok && !c.now().After(entry.ExpiresAt) {
			return entry.Data, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.SetWithTTL(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetLoadTimeout changes the bound on shared loads. Non-positive values
// restore DefaultLoadTimeout.
func (c *Cache) SetLoadTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultLoadTimeout
	}
	c.mu.Lock()
	c.loadTimeout = d
	c.mu.Unlock()
}
