package stream

import (
	"context"

	"github.com/fxsml/streams/internal/region"
	"github.com/fxsml/streams/stream/bufstate"
)

// Suspending is the suspending buffer operator (§6.D): a bounded FIFO of
// capacity limit where Send parks the single producer once the buffer is
// full, instead of dropping or suspending the whole pipeline indefinitely.
// Exactly one producer and one consumer may be suspended at a time; a second
// concurrent Send (or Recv) while one is already parked is a programming
// error and panics, matching the single-producer/single-consumer contract
// this operator sits in.
type Suspending[T any] struct {
	r     *region.Region[bufstate.State[T]]
	limit int
	log   *logAdapter
}

// NewSuspending creates an empty suspending buffer of the given capacity.
// Panics if limit is not positive.
func NewSuspending[T any](limit int, opts ...ChannelOption) *Suspending[T] {
	if limit <= 0 {
		panic(ErrInvalidLimit)
	}
	s := newSettings(opts)
	return &Suspending[T]{
		r:     region.New(bufstate.State[T]{}),
		limit: limit,
		log:   newLogAdapter(s.logger),
	}
}

// Send offers elem to the buffer, suspending only when the buffer is
// already at capacity. Cancellation via ctx removes the producer from the
// parked slot and discards elem without affecting the buffered queue.
func (b *Suspending[T]) Send(ctx context.Context, elem T) error {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.SendAction[T] {
		return bufstate.SendSuspending(s, elem, b.limit)
	})
	return b.runSendAction(ctx, act)
}

func (b *Suspending[T]) runSendAction(ctx context.Context, act bufstate.SendAction[T]) error {
	if act.WakeConsumer != nil {
		act.WakeConsumer.Resume(act.ConsumerResult)
	}
	if act.Immediate {
		return nil
	}
	p := act.Park
	_, _, cancelled := p.Await(ctx)
	if !cancelled {
		return nil
	}
	if p.TryResumed() {
		return nil
	}
	region.With(b.r, func(s *bufstate.State[T]) struct{} {
		if s.ParkedProducer == p {
			s.ParkedProducer = nil
			var zero T
			s.ParkedElem = zero
		}
		return struct{}{}
	})
	return nil
}

// Finish marks the buffer Finished, draining naturally: buffered elements
// remain available to Recv until exhausted. Idempotent.
func (b *Suspending[T]) Finish() {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.Finish(s)
	})
	runTerminateAction(act)
}

// Fail marks the buffer Failed with err, surfacing once queued elements
// drain. Idempotent after the first terminal call.
func (b *Suspending[T]) Fail(err error) {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.Fail(s, err)
	})
	runTerminateAction(act)
}

// CancelUpstream tells the buffer its producer went away. A parked producer
// is woken and its element dropped, and elements already buffered remain for
// Recv; with no producer parked, buffered elements are discarded.
func (b *Suspending[T]) CancelUpstream() {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.CancelUpstream(s)
	})
	runTerminateAction(act)
}

// CancelDownstream tells the buffer its consumer went away: buffered
// elements are discarded unconditionally.
func (b *Suspending[T]) CancelDownstream() {
	act := region.With(b.r, func(s *bufstate.State[T]) bufstate.TerminateAction[T] {
		return bufstate.CancelDownstream(s)
	})
	runTerminateAction(act)
}

// Receiver returns a Receiver bound to this buffer.
func (b *Suspending[T]) Receiver() Receiver[T] {
	return ReceiverFunc[T](b.recv)
}

func (b *Suspending[T]) recv(ctx context.Context) (T, bool, error) {
	return recvFromBuffer[T](b.r, ctx)
}

// recvFromBuffer drives the RecvUpstream/park/cancel dance shared by
// Suspending and Queued: both buffer flavors park at most one consumer at a
// time in bufstate.State.ParkedConsumer, and both need the same
// cancellation-vs-delivery race handling (§8.1.3: a concurrent wake must
// never be discarded just because this call's own cancellation lost the
// lock race to remove the waiter first).
func recvFromBuffer[T any](r *region.Region[bufstate.State[T]], ctx context.Context) (T, bool, error) {
	act := region.With(r, func(s *bufstate.State[T]) bufstate.RecvAction[T] {
		return bufstate.RecvUpstream(s)
	})
	if act.WakeProducer != nil {
		act.WakeProducer.Resume(struct{}{})
	}
	if act.Immediate {
		return unpackOption[T](act.Result)
	}

	c := act.Park
	v, _, cancelled := c.Await(ctx)
	if !cancelled {
		return unpackOption[T](v)
	}
	if c.TryResumed() {
		v, _, _ := c.Await(context.Background())
		return unpackOption[T](v)
	}
	cleared := region.With(r, func(s *bufstate.State[T]) bool {
		if s.ParkedConsumer != c {
			return false
		}
		s.ParkedConsumer = nil
		return true
	})
	if !cleared {
		// A concurrent RecvUpstream/terminate transition already resumed
		// this waiter before the clear's lock acquisition; drain the value.
		v, _, _ := c.Await(context.Background())
		return unpackOption[T](v)
	}
	var zero T
	return zero, false, nil
}

func runTerminateAction[T any](act bufstate.TerminateAction[T]) {
	if act.WakeProducer != nil {
		act.WakeProducer.Resume(struct{}{})
	}
	if act.ResolveConsumer != nil {
		act.ResolveConsumer.Resume(act.ConsumerResult)
	}
}
