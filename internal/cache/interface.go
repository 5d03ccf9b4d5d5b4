// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package cache

import (
	"context"
	"time"
)

// Cacher is the read-through cache consumed by the query paths.
type Cacher interface {
	Get(key string) (interface{}, bool)
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader) (interface{}, error)
	Delete(key string)
	Clear()
}

var _ Cacher = (*Cache)(nil)
