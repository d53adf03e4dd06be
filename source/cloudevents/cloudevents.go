// Package cloudevents adapts a CloudEvents protocol.Receiver into a
// stream.Source[*message.Message]. protocol.Receiver.Receive(ctx) is
// already pull-based, so Next is a thin conversion rather than a bridge
// over a push channel.
package cloudevents

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudevents/sdk-go/v2/binding"
	"github.com/cloudevents/sdk-go/v2/protocol"

	"github.com/fxsml/streams/message"
	"github.com/fxsml/streams/streamlog"
)

// Config configures a Subscriber.
type Config struct {
	Logger streamlog.Logger
}

func (c Config) applyDefaults() Config {
	if c.Logger == nil {
		c.Logger = streamlog.Default()
	}
	return c
}

// Subscriber is a stream.Source[*message.Message] wrapping a CloudEvents
// protocol.Receiver, bridging its Finish(err) acknowledgment to
// message.Message's Ack/Nack fields.
type Subscriber struct {
	receiver protocol.Receiver
	cfg      Config
}

// NewSubscriber wraps receiver as a Source.
func NewSubscriber(receiver protocol.Receiver, cfg Config) *Subscriber {
	return &Subscriber{receiver: receiver, cfg: cfg.applyDefaults()}
}

// Next receives and converts the next CloudEvent. An io.EOF from the
// receiver (the source is exhausted, not merely idle) surfaces as
// end-of-stream (ok=false, err=nil) rather than an error.
func (s *Subscriber) Next(ctx context.Context) (*message.Message, bool, error) {
	ceMsg, err := s.receiver.Receive(ctx)
	if err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("source/cloudevents: receive: %w", err)
	}

	event, err := binding.ToEvent(ctx, ceMsg)
	if err != nil {
		if finishErr := ceMsg.Finish(err); finishErr != nil {
			s.cfg.Logger.Error("source/cloudevents: finish after conversion error", "error", finishErr)
		}
		return nil, false, fmt.Errorf("source/cloudevents: convert: %w", err)
	}

	headers := map[string]string{
		"ce-id":     event.ID(),
		"ce-source": event.Source(),
		"ce-type":   event.Type(),
	}
	return &message.Message{
		ID:        event.ID(),
		Payload:   event.Data(),
		Topic:     event.Type(),
		Timestamp: event.Time(),
		Headers:   headers,
		Ack:       func() error { return ceMsg.Finish(nil) },
		Nack:      func() error { return ceMsg.Finish(fmt.Errorf("source/cloudevents: nack")) },
	}, true, nil
}
