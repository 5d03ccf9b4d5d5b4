// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package syncqueue replays incremental index syncs that failed.

When the graph or vector index is unreachable during a write, the orchestrator
hands the change to the Queue instead of failing the write:

	journal, _ := syncqueue.OpenJournal(cfg.Queue.JournalDir)
	queue, _ := syncqueue.New(&cfg.Queue, journal, orchestrator)
	orchestrator.SetRetryQueue(queue)
	tree.AddMessagingService(queue)

Delivery:

  - Enqueue writes the change to a BadgerDB journal, then publishes it.
  - The Watermill router consumes the topic through poison queue, retry
    (exponential backoff) and recoverer middleware and replays the change
    through the orchestrator.
  - A successful replay acknowledges the journal entry. Changes whose catalog
    rows are gone are acknowledged and dropped.
  - Every Serve start republishes whatever the journal still holds, which
    covers crashes and changes that exhausted their retries.

Transports:

  - memory: Watermill gochannel, for single-process deployments
  - nats: Watermill NATS JetStream against queue.nats_url, or against an
    embedded nats-server when queue.embedded_nats is set

Replays are idempotent, so duplicate deliveries are harmless.
*/
package syncqueue
