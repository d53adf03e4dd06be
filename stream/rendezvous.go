package stream

import (
	"context"

	"github.com/fxsml/streams/handle"
	"github.com/fxsml/streams/internal/region"
)

// Rendezvous is the back-pressured, unbuffered producer/consumer meeting
// point (§6.B of this module's design): Send suspends until a consumer takes
// the element or the channel is finished; Recv suspends until a producer
// delivers or the channel is finished. Neither side ever observes a
// failure — Rendezvous carries no failure type, only Finished.
type Rendezvous[T any] struct {
	r   *region.Region[rendezvousState[T]]
	log *logAdapter
}

type producerWaiter[T any] struct {
	id   uint64
	elem T
	h    *handle.Handle[struct{}]
}

type consumerWaiter[T any] struct {
	id uint64
	h  *handle.Handle[Option[T]]
}

type rendezvousState[T any] struct {
	producers []*producerWaiter[T] // Pending: FIFO
	consumers []*consumerWaiter[T] // Awaiting: FIFO
	terminal  bool
	ids       handle.Counter
}

// NewRendezvous creates an empty, non-terminal rendezvous channel.
func NewRendezvous[T any](opts ...ChannelOption) *Rendezvous[T] {
	s := newSettings(opts)
	return &Rendezvous[T]{
		r:   region.New(rendezvousState[T]{}),
		log: newLogAdapter(s.logger),
	}
}

// Send offers e to the channel, suspending until a consumer takes it or the
// channel is finished. An already-terminated channel returns immediately
// with no error; producer cancellation via ctx force-finishes the channel
// (every other waiter is released), matching this module's choice to treat
// producer cancellation as channel termination.
func (ch *Rendezvous[T]) Send(ctx context.Context, e T) error {
	type outcome struct {
		immediate    bool
		wakeConsumer *consumerWaiter[T]
		park         *producerWaiter[T]
	}

	out := region.With(ch.r, func(s *rendezvousState[T]) outcome {
		if s.terminal {
			return outcome{immediate: true}
		}
		if len(s.consumers) > 0 {
			c := s.consumers[0]
			s.consumers = s.consumers[1:]
			// A consumer was already waiting; the send itself never
			// suspends, but delivery happens after the lock is released.
			return outcome{immediate: true, wakeConsumer: c}
		}
		p := &producerWaiter[T]{id: s.ids.Next(), elem: e, h: handle.NewAnon[struct{}]()}
		s.producers = append(s.producers, p)
		return outcome{park: p}
	})

	if out.wakeConsumer != nil {
		deliverConsumer(out.wakeConsumer, Some(e))
	}

	if out.immediate {
		return nil
	}

	p := out.park
	_, _, cancelled := p.h.Await(ctx)
	if !cancelled {
		return nil
	}
	if p.h.TryResumed() {
		return nil // lost the cancellation race; already matched
	}
	// Producer cancellation force-finishes the channel.
	ch.log.warn("stream: producer cancelled, finishing rendezvous channel")
	ch.Finish()
	return nil
}

// Finish transitions the channel to terminal: every pending producer is
// released (its element discarded) and every pending consumer receives
// end-of-stream. Idempotent.
func (ch *Rendezvous[T]) Finish() {
	type released struct {
		producers []*producerWaiter[T]
		consumers []*consumerWaiter[T]
	}
	rel := region.With(ch.r, func(s *rendezvousState[T]) released {
		if s.terminal {
			return released{}
		}
		s.terminal = true
		r := released{producers: s.producers, consumers: s.consumers}
		s.producers = nil
		s.consumers = nil
		return r
	})
	for _, p := range rel.producers {
		resumeProducer(p)
	}
	for _, c := range rel.consumers {
		deliverConsumer(c, None[T]())
	}
}

// Receiver returns a Receiver bound to this channel.
func (ch *Rendezvous[T]) Receiver() Receiver[T] {
	return ReceiverFunc[T](ch.recv)
}

func (ch *Rendezvous[T]) recv(ctx context.Context) (T, bool, error) {
	type outcome struct {
		immediate    bool
		result       Option[T]
		park         *consumerWaiter[T]
		wakeProducer *producerWaiter[T]
	}

	out := region.With(ch.r, func(s *rendezvousState[T]) outcome {
		if len(s.producers) > 0 {
			p := s.producers[0]
			s.producers = s.producers[1:]
			return outcome{immediate: true, result: Some(p.elem), wakeProducer: p}
		}
		if s.terminal {
			return outcome{immediate: true, result: None[T]()}
		}
		c := &consumerWaiter[T]{id: s.ids.Next(), h: handle.NewAnon[Option[T]]()}
		s.consumers = append(s.consumers, c)
		return outcome{park: c}
	})

	if out.wakeProducer != nil {
		resumeProducer(out.wakeProducer)
	}

	if out.immediate {
		var zero T
		if out.result.Err != nil {
			return zero, false, out.result.Err
		}
		if !out.result.Ok {
			return zero, false, nil
		}
		return out.result.Value, true, nil
	}

	c := out.park
	v, _, cancelled := c.h.Await(ctx)
	if !cancelled {
		var zero T
		if v.Err != nil {
			return zero, false, v.Err
		}
		if !v.Ok {
			return zero, false, nil
		}
		return v.Value, true, nil
	}
	if c.h.TryResumed() {
		// Lost the cancellation race; deliver what arrived anyway.
		v, _, _ := c.h.Await(context.Background())
		var zero T
		if !v.Ok {
			return zero, false, v.Err
		}
		return v.Value, true, nil
	}
	if ch.cancelConsumer(c.id) {
		var zero T
		return zero, false, nil
	}
	// The removal lost the race: a concurrent Send already matched this
	// waiter before cancelConsumer's lock acquisition. Drain the delivered
	// value instead of discarding it.
	v, _, _ = c.h.Await(context.Background())
	var zero T
	if !v.Ok {
		return zero, false, v.Err
	}
	return v.Value, true, nil
}

// cancelConsumer removes id from the waiter set, reporting whether it was
// still present. A false return means a concurrent Send already delivered
// to this waiter and popped it first.
func (ch *Rendezvous[T]) cancelConsumer(id uint64) bool {
	return region.With(ch.r, func(s *rendezvousState[T]) bool {
		for i, c := range s.consumers {
			if c.id == id {
				s.consumers = append(s.consumers[:i], s.consumers[i+1:]...)
				return true
			}
		}
		return false
	})
}

func deliverConsumer[T any](c *consumerWaiter[T], v Option[T]) {
	c.h.Resume(v)
}

func resumeProducer[T any](p *producerWaiter[T]) {
	p.h.Resume(struct{}{})
}
