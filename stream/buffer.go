package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// bufferStorage is the subset of Suspending/Queued that BufferedSequence
// drives: a uniform Send regardless of whether the underlying storage ever
// suspends the producer.
type bufferStorage[T any] interface {
	Send(ctx context.Context, v T) error
	Finish()
	Fail(err error)
	CancelUpstream()
	CancelDownstream()
	Receiver() Receiver[T]
}

type suspendingStorage[T any] struct{ *Suspending[T] }

type queuedStorage[T any] struct{ *Queued[T] }

func (s queuedStorage[T]) Send(_ context.Context, v T) error {
	s.Queued.Send(v)
	return nil
}

// BufferedSequence adapts a pull-based Source into a Receiver backed by a
// bounded storage (Suspending or Queued), decoupling the upstream's pull
// rate from the downstream's via exactly one background drainer goroutine.
//
// The drainer starts on the first Receiver() call (sync.Once-guarded); it is
// idempotent by design, not a panic, since calling Receiver() again on an
// already-started sequence is expected and simply returns the same Receiver.
type BufferedSequence[T any] struct {
	src     Source[T]
	storage bufferStorage[T]
	log     *logAdapter

	drainTimeout time.Duration
	drainDone    chan struct{}

	once       sync.Once
	started    atomic.Bool
	downCtx    context.Context
	cancelDown context.CancelFunc
}

// Buffer wraps src in a suspending or queued storage (selected by opts;
// suspending with capacity 1 if neither WithSuspendingLimit nor
// WithQueuedPolicy is given) and returns the resulting sequence. The
// drainer goroutine is not started until Receiver() is first called, but the
// cancellation used to stop it is created here so CancelDownstream never
// races Receiver()'s first call.
func Buffer[T any](src Source[T], opts ...ChannelOption) *BufferedSequence[T] {
	s := newSettings(opts)
	var storage bufferStorage[T]
	if s.queuePolicy != nil {
		storage = queuedStorage[T]{NewQueued[T](*s.queuePolicy, WithLogger(s.logger))}
	} else {
		storage = suspendingStorage[T]{NewSuspending[T](s.suspendLimit, WithLogger(s.logger))}
	}
	downCtx, cancelDown := context.WithCancel(context.Background())
	return &BufferedSequence[T]{
		src:          src,
		storage:      storage,
		log:          newLogAdapter(s.logger),
		drainTimeout: s.drainTimeout,
		drainDone:    make(chan struct{}),
		downCtx:      downCtx,
		cancelDown:   cancelDown,
	}
}

// Receiver returns the Receiver backed by this sequence's storage, starting
// the drainer goroutine on the first call.
func (b *BufferedSequence[T]) Receiver() Receiver[T] {
	b.once.Do(func() {
		b.started.Store(true)
		go func() {
			defer close(b.drainDone)
			b.drain(b.downCtx)
		}()
	})
	return b.storage.Receiver()
}

// CancelDownstream stops the drainer (as if its context had been cancelled)
// and tells the storage every consumer is gone, discarding buffered
// elements. Safe to call whether or not Receiver() was ever invoked. If
// drainTimeout was configured (config.BufferConfig.DrainTimeout, applied via
// WithConfig) and the drainer is running, this blocks until it observes the
// cancellation or the timeout elapses, whichever comes first.
func (b *BufferedSequence[T]) CancelDownstream() {
	b.cancelDown()
	b.storage.CancelDownstream()
	if b.drainTimeout <= 0 || !b.started.Load() {
		return
	}
	timer := time.NewTimer(b.drainTimeout)
	defer timer.Stop()
	select {
	case <-b.drainDone:
	case <-timer.C:
	}
}

func (b *BufferedSequence[T]) drain(ctx context.Context) {
	for {
		v, ok, err := b.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// The drainer's own context was cancelled (CancelDownstream);
				// src.Next surfacing ctx.Err() here is expected, not a
				// genuine upstream failure.
				b.storage.CancelUpstream()
				return
			}
			b.log.error("stream: upstream source failed, failing buffer", "error", err)
			b.storage.Fail(err)
			return
		}
		if !ok {
			b.storage.Finish()
			return
		}
		if sendErr := b.storage.Send(ctx, v); sendErr != nil {
			if ctx.Err() != nil {
				b.storage.CancelUpstream()
				return
			}
			b.log.error("stream: buffer send failed", "error", sendErr)
			b.storage.Fail(sendErr)
			return
		}
		if ctx.Err() != nil {
			b.storage.CancelUpstream()
			return
		}
	}
}
