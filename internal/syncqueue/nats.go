// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package syncqueue

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

const (
	durablePrefix  = "reelgraph-sync"
	queueGroup     = "reelgraph-sync"
	maxReconnects  = -1
	reconnectWait  = 2 * time.Second
	ackWaitTimeout = 30 * time.Second
)

// startEmbeddedNATS starts an in-process JetStream server on a random
// loopback port.
func startEmbeddedNATS(storeDir string) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "reelgraph-sync",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   storeDir,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return ns, nil
}

func (q *Queue) natsOptions() []natsgo.Option {
	logger := q.wmLogger
	return []natsgo.Option{
		natsgo.Name("reelgraph-sync-queue"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

// openNATS connects the JetStream publisher and durable subscriber, starting
// an embedded server first when configured. Streams are provisioned per topic.
func (q *Queue) openNATS() error {
	url := q.cfg.NATSURL
	if q.cfg.EmbeddedNATS {
		ns, err := startEmbeddedNATS(q.cfg.NATSStoreDir)
		if err != nil {
			return err
		}
		q.embedded = ns
		url = ns.ClientURL()
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: q.natsOptions(),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, q.wmLogger)
	if err != nil {
		q.shutdownEmbedded()
		return fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   ackWaitTimeout,
		CloseTimeout:     q.cfg.CloseTimeout,
		NatsOptions:      q.natsOptions(),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: durablePrefix,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverAll(),
				natsgo.AckExplicit(),
			},
		},
	}, q.wmLogger)
	if err != nil {
		_ = pub.Close()
		q.shutdownEmbedded()
		return fmt.Errorf("create watermill subscriber: %w", err)
	}

	q.publisher = pub
	q.subscriber = sub
	return nil
}

func (q *Queue) shutdownEmbedded() {
	if q.embedded != nil {
		q.embedded.Shutdown()
		q.embedded = nil
	}
}
