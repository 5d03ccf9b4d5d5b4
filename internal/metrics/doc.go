// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package metrics defines the Prometheus collectors exported on /metrics.

Collectors are registered on the default registry through promauto at
package init. Components call the Record* helpers rather than touching the
vectors directly, so label sets stay consistent:

	start := time.Now()
	rows, err := runner.Run(ctx, query, params)
	metrics.RecordGraphQuery("user_based", time.Since(start), err)
*/
package metrics
