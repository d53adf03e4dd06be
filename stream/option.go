package stream

import (
	"time"

	"github.com/fxsml/streams/config"
	"github.com/fxsml/streams/stream/bufstate"
	"github.com/fxsml/streams/streamlog"
)

// ChannelOption configures a channel, buffer, or splitter constructor. The
// zero value of every settings field is its default, matching the functional
// options idiom used throughout this module's lineage (pipe.Option,
// middleware chains).
type ChannelOption func(*settings)

type settings struct {
	logger streamlog.Logger

	// Buffer selects which storage Buffer wraps: Suspending (the default,
	// bounded to suspendLimit) unless queuePolicy has been set via
	// WithQueuedPolicy.
	suspendLimit int
	queuePolicy  *bufstate.Policy

	// drainTimeout bounds how long BufferedSequence.CancelDownstream waits
	// for the drainer goroutine to observe cancellation before returning.
	// Zero (the default) means it doesn't wait at all.
	drainTimeout time.Duration
}

// WithLogger overrides the logger used for this component's Debug/Warn/Error
// events. Defaults to streamlog.Default().
func WithLogger(l streamlog.Logger) ChannelOption {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSuspendingLimit selects the suspending buffer variant for Buffer, with
// the given capacity. This is the default variant (capacity 1) when Buffer
// is called with neither WithSuspendingLimit nor WithQueuedPolicy.
func WithSuspendingLimit(limit int) ChannelOption {
	return func(s *settings) {
		s.suspendLimit = limit
		s.queuePolicy = nil
	}
}

// WithQueuedPolicy selects the queued buffer variant for Buffer, governed by
// policy.
func WithQueuedPolicy(policy bufstate.Policy) ChannelOption {
	return func(s *settings) {
		s.queuePolicy = &policy
	}
}

// WithConfig applies a config.BufferConfig as loaded by config.Load,
// selecting the queued variant (and its policy) when cfg.Policy is set, or
// the suspending variant with cfg.Limit as its capacity otherwise.
func WithConfig(cfg config.BufferConfig) ChannelOption {
	return func(s *settings) {
		switch cfg.Policy {
		case "":
			if cfg.Limit > 0 {
				s.suspendLimit = cfg.Limit
			}
		case "unbounded":
			s.queuePolicy = &bufstate.Policy{Kind: bufstate.Unbounded}
		case "drop-oldest":
			s.queuePolicy = &bufstate.Policy{Kind: bufstate.DropOldest, Limit: cfg.Limit}
		case "drop-newest":
			s.queuePolicy = &bufstate.Policy{Kind: bufstate.DropNewest, Limit: cfg.Limit}
		}
		s.drainTimeout = cfg.DrainTimeout
	}
}

func newSettings(opts []ChannelOption) settings {
	s := settings{logger: streamlog.Default(), suspendLimit: 1}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
