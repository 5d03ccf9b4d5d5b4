// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// handlerName identifies the replay handler in router logs.
const handlerName = "index-sync-replay"

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("sync queue is closed")

// Applier projects a change into the indexes.
type Applier interface {
	Apply(ctx context.Context, c syncpkg.Change) error
}

// Queue replays changes whose incremental sync failed. Every change is
// journaled before it is published and acknowledged in the journal once a
// replay succeeds, so unacknowledged changes survive restarts and are
// republished when the queue starts serving.
type Queue struct {
	cfg     config.QueueConfig
	journal *Journal
	applier Applier

	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *server.Server

	wmLogger watermill.LoggerAdapter
	logger   zerolog.Logger

	mu        sync.RWMutex
	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
}

// New builds the queue transport selected by cfg.Driver. Messages are not
// consumed until Serve runs.
func New(cfg *config.QueueConfig, journal *Journal, applier Applier) (*Queue, error) {
	logger := logging.WithComponent("syncqueue")
	q := &Queue{
		cfg:      *cfg,
		journal:  journal,
		applier:  applier,
		wmLogger: logging.NewWatermillAdapter(logger),
		logger:   logger,
		ready:    make(chan struct{}),
	}
	q.applyDefaults()

	switch q.cfg.Driver {
	case "memory", "":
		pubSub := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, q.wmLogger)
		q.publisher = pubSub
		q.subscriber = pubSub
	case "nats":
		if err := q.openNATS(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown queue driver %q", q.cfg.Driver)
	}

	q.logger.Info().
		Str("driver", q.cfg.Driver).
		Str("topic", q.cfg.Topic).
		Bool("embedded_nats", q.embedded != nil).
		Msg("Sync retry queue ready")
	return q, nil
}

func (q *Queue) applyDefaults() {
	if q.cfg.Topic == "" {
		q.cfg.Topic = "index_sync_retry"
	}
	if q.cfg.RetryInitialInterval <= 0 {
		q.cfg.RetryInitialInterval = time.Second
	}
	if q.cfg.RetryMaxInterval <= 0 {
		q.cfg.RetryMaxInterval = time.Minute
	}
	if q.cfg.CloseTimeout <= 0 {
		q.cfg.CloseTimeout = 30 * time.Second
	}
}

// Enqueue journals c and publishes it for replay. A change without an id is
// given one.
func (q *Queue) Enqueue(ctx context.Context, c syncpkg.Change) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := q.journal.Append(ctx, c); err != nil {
		return models.NewDependency("queue", "journal", err)
	}
	if err := q.publish(c); err != nil {
		// Keep the journal in step with what the caller is told.
		if ackErr := q.journal.Ack(ctx, c.ID); ackErr != nil {
			q.logger.Error().Err(ackErr).Str("change_id", c.ID).Msg("Failed to drop unpublished change from journal")
		}
		return models.NewDependency("queue", "publish", err)
	}

	metrics.QueueMessages.WithLabelValues("enqueued").Inc()
	return nil
}

func (q *Queue) publish(c syncpkg.Change) error {
	payload, err := json.Marshal(&c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	msg := message.NewMessage(c.ID, payload)
	msg.Metadata.Set("kind", string(c.Kind))
	return q.publisher.Publish(q.cfg.Topic, msg)
}

// Redrive republishes every journaled change that has not been acknowledged.
func (q *Queue) Redrive(ctx context.Context) (int, error) {
	entries, err := q.journal.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}
	published := 0
	for i := range entries {
		if err := q.publish(entries[i].Change); err != nil {
			return published, fmt.Errorf("republish change %s: %w", entries[i].Change.ID, err)
		}
		published++
	}
	if published > 0 {
		metrics.QueueMessages.WithLabelValues("redriven").Add(float64(published))
		q.logger.Info().Int("count", published).Msg("Republished pending sync changes")
	}
	return published, nil
}

// handle replays one change. Missing catalog rows and malformed changes are
// dropped; every other failure is returned so the retry middleware backs off
// and, after the last attempt, the poison queue takes the message. A poisoned
// change stays in the journal and is republished on the next start.
func (q *Queue) handle(msg *message.Message) error {
	var c syncpkg.Change
	if err := json.Unmarshal(msg.Payload, &c); err != nil {
		metrics.QueueMessages.WithLabelValues("malformed").Inc()
		q.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed sync change")
		return nil
	}

	ctx := msg.Context()
	err := q.applier.Apply(ctx, c)
	switch {
	case err == nil:
		metrics.QueueMessages.WithLabelValues("applied").Inc()
	case models.IsNotFound(err) || models.IsArgument(err):
		metrics.QueueMessages.WithLabelValues("dropped").Inc()
		q.logger.Warn().Err(err).Str("change", c.String()).Msg("Dropping sync change that can no longer apply")
	default:
		metrics.QueueMessages.WithLabelValues("failed").Inc()
		if recErr := q.journal.RecordAttempt(ctx, c.ID, err); recErr != nil {
			q.logger.Warn().Err(recErr).Str("change_id", c.ID).Msg("Failed to record replay attempt")
		}
		return err
	}

	if err := q.journal.Ack(ctx, c.ID); err != nil {
		q.logger.Error().Err(err).Str("change_id", c.ID).Msg("Failed to acknowledge replayed change")
	}
	q.logger.Debug().Str("change", c.String()).Msg("Sync change replayed")
	return nil
}

// newRouter builds a router with, from outermost to innermost: poison
// queue, retry with exponential backoff, panic recovery.
func (q *Queue) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: q.cfg.CloseTimeout,
	}, q.wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	if q.cfg.PoisonTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(q.publisher, q.cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poisonQueue)
	}

	retry := middleware.Retry{
		MaxRetries:      q.cfg.RetryMaxRetries,
		InitialInterval: q.cfg.RetryInitialInterval,
		MaxInterval:     q.cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          q.wmLogger,
	}
	router.AddMiddleware(retry.Middleware, middleware.Recoverer)

	router.AddConsumerHandler(handlerName, q.cfg.Topic, sharedSubscriber{q.subscriber}, q.handle)
	return router, nil
}

// Serve implements suture.Service. It runs a fresh router, republishes the
// journal once the router is consuming and blocks until ctx is canceled.
func (q *Queue) Serve(ctx context.Context) error {
	router, err := q.newRouter()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	select {
	case <-router.Running():
		if _, err := q.Redrive(ctx); err != nil {
			q.logger.Warn().Err(err).Msg("Failed to republish pending sync changes")
		}
		q.readyOnce.Do(func() { close(q.ready) })
	case err := <-errCh:
		return fmt.Errorf("sync queue router stopped: %w", err)
	}

	err = <-errCh
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("sync queue router stopped: %w", err)
	}
	return nil
}

// Ready is closed once the first Serve run is consuming and has republished
// the journal.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// String returns the service name for logging.
func (q *Queue) String() string {
	return "sync-retry-queue"
}

// Close shuts the transport down. The journal is owned by the caller.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true

	var errs []error
	if err := q.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if !samePubSub(q.publisher, q.subscriber) {
		if err := q.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if q.embedded != nil {
		q.embedded.Shutdown()
		q.embedded.WaitForShutdown()
	}
	return errors.Join(errs...)
}

func samePubSub(pub message.Publisher, sub message.Subscriber) bool {
	p, ok := pub.(*gochannel.GoChannel)
	if !ok {
		return false
	}
	s, ok := sub.(*gochannel.GoChannel)
	return ok && p == s
}

// sharedSubscriber keeps the router from closing the queue's subscriber, so
// Serve can be restarted by the supervisor. Subscriptions end with the
// router's context.
type sharedSubscriber struct {
	message.Subscriber
}

func (sharedSubscriber) Close() error { return nil }
