// Package kafka adapts a Kafka topic into a stream.Source[*message.Message].
//
// Unlike source/nats's subject wildcards, Kafka topics are explicit and
// partitioned, with offsets committed per consumer group — kafka-go's
// Reader already exposes a pull-based ReadMessage(ctx), which this adapter
// wraps directly rather than fanning it through an intermediate channel.
package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fxsml/streams/message"
	"github.com/fxsml/streams/streamlog"
)

// Config configures a Subscriber.
type Config struct {
	Brokers []string
	Topic   string

	// ConsumerGroup enables partition-balanced consumption; required for
	// production use (without it, the Reader reads only partition 0).
	ConsumerGroup string

	// StartOffset controls where to start reading when no committed offset
	// exists. Use kafkago.FirstOffset or kafkago.LastOffset. Default: LastOffset.
	StartOffset int64

	// CommitInterval is how often offsets are auto-committed. Default: 1s.
	CommitInterval time.Duration

	// MaxWait bounds how long each fetch from the broker waits for new data
	// before the Reader issues another; ReadMessage itself keeps blocking
	// until a message arrives or ctx is done. Default: 1s.
	MaxWait time.Duration

	Logger streamlog.Logger
}

func (c Config) applyDefaults() Config {
	if c.StartOffset == 0 {
		c.StartOffset = kafkago.LastOffset
	}
	if c.CommitInterval <= 0 {
		c.CommitInterval = time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
	if c.Logger == nil {
		c.Logger = streamlog.Default()
	}
	return c
}

// Subscriber is a stream.Source[*message.Message] backed by a kafka-go
// Reader.
type Subscriber struct {
	cfg    Config
	reader *kafkago.Reader
}

// Open creates a Subscriber for cfg. The underlying Reader connects lazily
// on first use, matching kafka-go's own Reader semantics.
func Open(cfg Config) *Subscriber {
	cfg = cfg.applyDefaults()
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		StartOffset:    cfg.StartOffset,
		CommitInterval: cfg.CommitInterval,
		MaxWait:        cfg.MaxWait,
	})
	return &Subscriber{cfg: cfg, reader: reader}
}

// Next pulls the next message, blocking until one arrives, ctx is done, or
// the Reader fails.
func (s *Subscriber) Next(ctx context.Context) (*message.Message, bool, error) {
	raw, err := s.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("source/kafka: %w", err)
	}
	return &message.Message{
		ID:        message.DefaultIDGenerator(),
		Payload:   raw.Value,
		Topic:     raw.Topic,
		Timestamp: raw.Time,
		Headers:   kafkaHeaders(raw.Headers),
	}, true, nil
}

// Close closes the underlying Reader, committing any pending offsets.
func (s *Subscriber) Close() error {
	return s.reader.Close()
}

func kafkaHeaders(hs []kafkago.Header) map[string]string {
	if len(hs) == 0 {
		return nil
	}
	m := make(map[string]string, len(hs))
	for _, h := range hs {
		m[h.Key] = string(h.Value)
	}
	return m
}
