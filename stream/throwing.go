package stream

import (
	"context"

	"github.com/fxsml/streams/handle"
	"github.com/fxsml/streams/internal/region"
)

// Throwing is the throwing buffered channel (§6.C): Send never suspends and
// never fails; Fail and Finish are idempotent after the first terminal call;
// Recv suspends until an element, the stream ending, or a failure.
//
// The waiter set is unordered by design (mirrors the source library this
// module reimplements); this module documents and implements its tie-break
// as lowest generation id, per the resolved open question in DESIGN.md.
type Throwing[T any] struct {
	r   *region.Region[throwingState[T]]
	log *logAdapter
}

type queueItem[T any] struct {
	term bool
	elem T
	err  error // valid only when term; nil means Finished
}

type throwingWaiter[T any] struct {
	id uint64
	h  *handle.Handle[Option[T]]
}

type throwingState[T any] struct {
	queue   []queueItem[T]
	waiters map[uint64]*throwingWaiter[T]
	ids     handle.Counter

	closed     bool // a terminal call has already happened; further Send/Fail/Finish are no-ops
	terminated bool // the Terminated(Termination) state has actually been reached

	termErr       error
	termDelivered bool
}

// NewThrowing creates an empty, active throwing buffered channel.
func NewThrowing[T any](opts ...ChannelOption) *Throwing[T] {
	s := newSettings(opts)
	return &Throwing[T]{
		r:   region.New(throwingState[T]{waiters: make(map[uint64]*throwingWaiter[T])}),
		log: newLogAdapter(s.logger),
	}
}

// Send enqueues e, or hands it directly to the lowest-id parked waiter if
// any are present. A no-op once the channel has terminated.
func (ch *Throwing[T]) Send(e T) {
	w := region.With(ch.r, func(s *throwingState[T]) *throwingWaiter[T] {
		if s.closed {
			return nil
		}
		if w := popLowestWaiter(s); w != nil {
			return w
		}
		s.queue = append(s.queue, queueItem[T]{elem: e})
		return nil
	})
	if w != nil {
		w.h.Resume(Some(e))
	}
}

// Finish marks the channel Finished. If consumers are currently parked they
// are all resumed with end-of-stream immediately; otherwise the termination
// is queued behind any buffered elements and surfaces once they drain.
// Idempotent after the first terminal call.
func (ch *Throwing[T]) Finish() {
	ch.terminate(nil)
}

// Fail marks the channel Failed with err. If consumers are parked, every one
// of them is resumed with err; otherwise exactly one later Recv call (after
// buffered elements drain) observes err. Every Recv call after that observes
// end-of-stream. Idempotent after the
// first terminal call — unless built with -tags streams_debug, in which
// case a Fail after an earlier Finish/Fail panics (the stricter variant
// named in this module's design for the fail-after-finish open question).
func (ch *Throwing[T]) Fail(err error) {
	if strictTermination {
		already := region.With(ch.r, func(s *throwingState[T]) bool { return s.closed })
		if already {
			panic("stream: Fail called after channel already terminated")
		}
	}
	ch.terminate(err)
}

func (ch *Throwing[T]) terminate(err error) {
	type released struct {
		waiters []*throwingWaiter[T]
	}
	rel := region.With(ch.r, func(s *throwingState[T]) released {
		if s.closed {
			return released{}
		}
		s.closed = true
		if len(s.waiters) > 0 {
			var ws []*throwingWaiter[T]
			for _, w := range s.waiters {
				ws = append(ws, w)
			}
			s.waiters = make(map[uint64]*throwingWaiter[T])
			s.terminated = true
			s.termDelivered = true
			return released{waiters: ws}
		}
		if len(s.queue) == 0 {
			s.terminated = true
			s.termErr = err
			return released{}
		}
		s.queue = append(s.queue, queueItem[T]{term: true, err: err})
		return released{}
	})
	for _, w := range rel.waiters {
		if err != nil {
			w.h.Resume(ErrOf[T](err))
		} else {
			w.h.Resume(None[T]())
		}
	}
}

// Receiver returns a Receiver bound to this channel.
func (ch *Throwing[T]) Receiver() Receiver[T] {
	return ReceiverFunc[T](ch.recv)
}

func (ch *Throwing[T]) recv(ctx context.Context) (T, bool, error) {
	type outcome struct {
		immediate bool
		result    Option[T]
		park      *throwingWaiter[T]
	}

	out := region.With(ch.r, func(s *throwingState[T]) outcome {
		if len(s.queue) > 0 {
			head := s.queue[0]
			s.queue = s.queue[1:]
			if head.term {
				s.terminated = true
				if head.err != nil {
					return outcome{immediate: true, result: ErrOf[T](head.err)}
				}
				return outcome{immediate: true, result: None[T]()}
			}
			return outcome{immediate: true, result: Some(head.elem)}
		}
		if s.terminated {
			if s.termErr != nil && !s.termDelivered {
				s.termDelivered = true
				return outcome{immediate: true, result: ErrOf[T](s.termErr)}
			}
			return outcome{immediate: true, result: None[T]()}
		}
		w := &throwingWaiter[T]{id: s.ids.Next(), h: handle.NewAnon[Option[T]]()}
		s.waiters[w.id] = w
		return outcome{park: w}
	})

	if out.immediate {
		return unpackOption[T](out.result)
	}

	w := out.park
	v, _, cancelled := w.h.Await(ctx)
	if !cancelled {
		return unpackOption[T](v)
	}
	if w.h.TryResumed() {
		v, _, _ := w.h.Await(context.Background())
		return unpackOption[T](v)
	}
	removed := region.With(ch.r, func(s *throwingState[T]) bool {
		if _, ok := s.waiters[w.id]; !ok {
			return false
		}
		delete(s.waiters, w.id)
		return true
	})
	if !removed {
		// A concurrent Send/terminate already matched this waiter before
		// the delete's lock acquisition; drain the delivered value.
		v, _, _ := w.h.Await(context.Background())
		return unpackOption[T](v)
	}
	var zero T
	return zero, false, nil
}

// popLowestWaiter removes and returns the waiter with the lowest generation
// id, or nil if none are parked. The waiter set is a map (unordered by
// design, per the source library); this linear scan is the documented
// tie-break, acceptable because waiter sets are expected to stay small.
func popLowestWaiter[T any](s *throwingState[T]) *throwingWaiter[T] {
	var best *throwingWaiter[T]
	for _, w := range s.waiters {
		if best == nil || w.id < best.id {
			best = w
		}
	}
	if best != nil {
		delete(s.waiters, best.id)
	}
	return best
}

func unpackOption[T any](v Option[T]) (T, bool, error) {
	if v.Err != nil {
		var zero T
		return zero, false, v.Err
	}
	if !v.Ok {
		var zero T
		return zero, false, nil
	}
	return v.Value, true, nil
}
