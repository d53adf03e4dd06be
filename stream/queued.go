package stream

import (
	"context"

	"github.com/fxsml/streams/internal/region"
	"github.com/fxsml/streams/stream/bufstate"
)

// Queued is the queued buffer operator (§6.E): Send never suspends, instead
// applying bufstate.Policy to decide what happens once the queue is full.
// Only DropOldest and DropNewest require a positive Limit; Unbounded ignores
// it.
type Queued[T any] struct {
	r      *region.Region[bufstate.State[T]]
	policy bufstate.Policy
	log    *logAdapter
}

// NewQueued creates an empty queued buffer governed by policy. Panics if
// policy names a bounded kind with a non-positive limit.
func NewQueued[T any](policy bufstate.Policy, opts ...ChannelOption) *Queued[T] {
	if policy.Kind != bufstate.Unbounded && policy.Limit <= 0 {
		panic(ErrInvalidLimit)
	}
	s := newSettings(opts)
	return &Queued[T]{
		r:      region.New(bufstate.State[T]{}),
		policy: policy,
		log:    newLogAdapter(s.logger),
	}
}

// Send enqueues elem, applying the configured overflow policy if the queue
// is already at its limit. Never suspends, never returns an error.
func (b *Queued[T]) Send(elem T) {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.SendAction[T] {
		return bufstate.SendQueued(s, elem, b.policy)
	})
	if act.WakeConsumer != nil {
		act.WakeConsumer.Resume(act.ConsumerResult)
	}
}

// Finish marks the buffer Finished; buffered elements remain available to
// Recv until exhausted. Idempotent.
func (b *Queued[T]) Finish() {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.Finish(s)
	})
	runTerminateAction(act)
}

// Fail marks the buffer Failed with err, surfacing once queued elements
// drain. Idempotent after the first terminal call.
func (b *Queued[T]) Fail(err error) {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.Fail(s, err)
	})
	runTerminateAction(act)
}

// CancelUpstream tells the buffer its producer went away.
func (b *Queued[T]) CancelUpstream() {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.CancelUpstream(s)
	})
	runTerminateAction(act)
}

// CancelDownstream tells the buffer its consumer went away: buffered
// elements are discarded unconditionally.
func (b *Queued[T]) CancelDownstream() {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.CancelDownstream(s)
	})
	runTerminateAction(act)
}

// Receiver returns a Receiver bound to this buffer.
func (b *Queued[T]) Receiver() Receiver[T] {
	return ReceiverFunc[T](b.recv)
}

func (b *Queued[T]) recv(ctx context.Context) (T, bool, error) {
	// A queued buffer's producer never parks, so recvFromBuffer's
	// WakeProducer handling never fires here, but sharing the helper keeps
	// this in lockstep with Suspending.recv rather than duplicating the
	// park/cancel race handling across both files.
	return recvFromBuffer[T](b.r, ctx)
}
