package bufstate

import "github.com/fxsml/streams/handle"

// SendSuspending implements the suspending buffer's new_elem transition
// (bounded, limit N>0). The caller must already hold the lock guarding s.
func SendSuspending[T any](s *State[T], elem T, limit int) SendAction[T] {
	if s.Finished {
		return SendAction[T]{Immediate: true} // Finished: resume p (drop)
	}
	if s.ParkedProducer != nil {
		panic(ErrDoubleWaiter)
	}
	if s.ParkedConsumer != nil {
		// WaitingForUpstream: hand off directly, queue stays empty.
		c := s.ParkedConsumer
		s.ParkedConsumer = nil
		return SendAction[T]{Immediate: true, WakeConsumer: c, ConsumerResult: Some(elem)}
	}
	if len(s.Queue) < limit {
		s.Queue = append(s.Queue, elem)
		return SendAction[T]{Immediate: true}
	}
	// Buffering at capacity: park the producer with its element.
	s.ParkedElem = elem
	s.ParkedProducer = handle.NewAnon[struct{}]()
	return SendAction[T]{Park: s.ParkedProducer}
}

// SendQueued implements the queued buffer's new_elem transition, applying
// the overflow policy instead of ever parking the producer.
func SendQueued[T any](s *State[T], elem T, policy Policy) SendAction[T] {
	if s.Finished {
		return SendAction[T]{Immediate: true}
	}
	if s.ParkedConsumer != nil {
		c := s.ParkedConsumer
		s.ParkedConsumer = nil
		return SendAction[T]{Immediate: true, WakeConsumer: c, ConsumerResult: Some(elem)}
	}
	switch policy.Kind {
	case DropNewest:
		if policy.Limit > 0 && len(s.Queue) >= policy.Limit {
			s.Queue = s.Queue[1:]
		}
		s.Queue = append(s.Queue, elem)
	case DropOldest:
		if policy.Limit <= 0 || len(s.Queue) < policy.Limit {
			s.Queue = append(s.Queue, elem)
		}
		// else: incoming element dropped, queue unchanged.
	default: // Unbounded
		s.Queue = append(s.Queue, elem)
	}
	return SendAction[T]{Immediate: true}
}

// RecvUpstream implements new_iter(c), shared by both buffer variants: a
// queued buffer's State never has ParkedProducer set, so the
// WaitingForDownstream branch simply never triggers for it.
func RecvUpstream[T any](s *State[T]) RecvAction[T] {
	if s.ParkedConsumer != nil {
		panic(ErrDoubleWaiter)
	}
	if s.Finished {
		if len(s.Queue) > 0 {
			v := s.Queue[0]
			s.Queue = s.Queue[1:]
			return RecvAction[T]{Immediate: true, Result: Some(v)}
		}
		if s.Err != nil {
			err := s.Err
			s.Err = nil
			return RecvAction[T]{Immediate: true, Result: ErrOption[T](err)}
		}
		return RecvAction[T]{Immediate: true, Result: None[T]()}
	}
	if s.ParkedProducer != nil {
		// WaitingForDownstream(p, e', q): pop the existing head (if any),
		// then let the parked element take its place in the deque.
		var head T
		if len(s.Queue) > 0 {
			head = s.Queue[0]
			s.Queue = s.Queue[1:]
		}
		s.Queue = append(s.Queue, s.ParkedElem)
		p := s.ParkedProducer
		s.ParkedProducer = nil
		var zero T
		s.ParkedElem = zero
		return RecvAction[T]{Immediate: true, Result: Some(head), WakeProducer: p}
	}
	if len(s.Queue) > 0 {
		v := s.Queue[0]
		s.Queue = s.Queue[1:]
		return RecvAction[T]{Immediate: true, Result: Some(v)}
	}
	// Idle: park the consumer.
	s.ParkedConsumer = handle.NewAnon[Option[T]]()
	return RecvAction[T]{Park: s.ParkedConsumer}
}

// Finish implements the finish transition. Idempotent; a producer parked in
// WaitingForDownstream makes this an invalid call under the single-producer
// contract (the drainer cannot be both suspended in Send and calling Finish).
func Finish[T any](s *State[T]) TerminateAction[T] {
	if s.Finished {
		return TerminateAction[T]{}
	}
	if s.ParkedProducer != nil {
		panic("bufstate: Finish called while a producer is parked")
	}
	s.Finished = true
	act := TerminateAction[T]{}
	if s.ParkedConsumer != nil {
		act.ResolveConsumer = s.ParkedConsumer
		act.ConsumerResult = None[T]()
		s.ParkedConsumer = nil
	}
	return act
}

// Fail implements the fail transition. A failure after the buffer has
// already terminated is silently ignored (first-terminal-event-wins; see
// DESIGN.md for the resolved open question).
func Fail[T any](s *State[T], err error) TerminateAction[T] {
	if s.Finished {
		return TerminateAction[T]{}
	}
	if s.ParkedProducer != nil {
		panic("bufstate: Fail called while a producer is parked")
	}
	s.Finished = true
	act := TerminateAction[T]{}
	if s.ParkedConsumer != nil {
		act.ResolveConsumer = s.ParkedConsumer
		act.ConsumerResult = ErrOption[T](err)
		s.ParkedConsumer = nil
		return act // delivered directly; nothing left to surface later
	}
	s.Err = err
	return act
}

// CancelUpstream implements cancel_up: the drainer itself was cancelled.
// Buffered elements not yet delivered are discarded unless a producer is
// parked; a parked producer is woken (its in-flight element dropped) and in
// that case the already-buffered deque q is retained.
func CancelUpstream[T any](s *State[T]) TerminateAction[T] {
	return cancel(s, false)
}

// CancelDownstream implements cancel_down: every consumer of this buffer
// has gone away. Buffered elements are discarded unconditionally.
func CancelDownstream[T any](s *State[T]) TerminateAction[T] {
	return cancel(s, true)
}

func cancel[T any](s *State[T], clearOnParkedProducer bool) TerminateAction[T] {
	if s.Finished {
		return TerminateAction[T]{}
	}
	act := TerminateAction[T]{}
	s.Finished = true
	if s.ParkedConsumer != nil {
		act.ResolveConsumer = s.ParkedConsumer
		act.ConsumerResult = None[T]()
		s.ParkedConsumer = nil
		return act
	}
	if s.ParkedProducer != nil {
		act.WakeProducer = s.ParkedProducer
		s.ParkedProducer = nil
		var zero T
		s.ParkedElem = zero
		if clearOnParkedProducer {
			s.Queue = nil
		}
		return act
	}
	s.Queue = nil
	return act
}
