// Package nats adapts a NATS subject into a stream.Source[*message.Message],
// the pull-based contract this module's buffers and channels drain from.
//
// NATS subjects use hierarchical wildcards ("orders.*" / "orders.>"), unlike
// Kafka's partition model or RabbitMQ's exchange/queue/binding model — this
// adapter, like its sibling source/kafka and source/rabbitmq, exposes only
// the lowest common denominator (stream.Source[*message.Message]) so the
// rest of this module never needs to know which broker is underneath.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fxsml/streams/message"
	"github.com/fxsml/streams/streamlog"
)

// Config configures a Subscriber.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// Subject is the NATS subject to subscribe to. Supports wildcards: "*"
	// (single token), ">" (multiple tokens).
	Subject string

	// Queue is the optional queue group name for load balancing; when set,
	// only one subscriber in the group receives each message.
	Queue string

	// ConnectTimeout bounds the initial connection. Default 5s.
	ConnectTimeout time.Duration

	Logger streamlog.Logger
}

func (c Config) applyDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = streamlog.Default()
	}
	return c
}

// Subscriber is a stream.Source[*message.Message] backed by a synchronous
// NATS subscription (nats.Subscription.NextMsgWithContext), so Next pulls
// exactly one message per call instead of racing a push channel.
type Subscriber struct {
	cfg  Config
	conn *nats.Conn
	sub  *nats.Subscription
}

// Dial connects to NATS and opens the subscription described by cfg.
func Dial(cfg Config) (*Subscriber, error) {
	cfg = cfg.applyDefaults()
	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				cfg.Logger.Warn("source/nats: disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			cfg.Logger.Info("source/nats: reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("source/nats: connect: %w", err)
	}

	var sub *nats.Subscription
	if cfg.Queue != "" {
		sub, err = conn.QueueSubscribeSync(cfg.Subject, cfg.Queue)
	} else {
		sub, err = conn.SubscribeSync(cfg.Subject)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("source/nats: subscribe %q: %w", cfg.Subject, err)
	}

	return &Subscriber{cfg: cfg, conn: conn, sub: sub}, nil
}

// Next pulls the next message from the subscription, blocking until one
// arrives or ctx is done.
func (s *Subscriber) Next(ctx context.Context) (*message.Message, bool, error) {
	raw, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("source/nats: %w", err)
	}
	return &message.Message{
		ID:        message.DefaultIDGenerator(),
		Payload:   raw.Data,
		Topic:     raw.Subject,
		Timestamp: time.Now(),
		Headers:   natsHeaders(raw),
		Ack:       func() error { return raw.Ack() },
		Nack:      func() error { return raw.Nak() },
	}, true, nil
}

// Close unsubscribes and closes the underlying connection.
func (s *Subscriber) Close() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return err
	}
	s.conn.Close()
	return nil
}

func natsHeaders(m *nats.Msg) map[string]string {
	if m.Header == nil {
		return nil
	}
	h := make(map[string]string, len(m.Header))
	for k, v := range m.Header {
		if len(v) > 0 {
			h[k] = v[0]
		}
	}
	return h
}
