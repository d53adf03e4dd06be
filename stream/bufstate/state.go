// Package bufstate implements the pure transition functions driving the
// bounded buffer automata described for the suspending and queued buffer
// operators: Idle | Buffering | WaitingForDownstream | WaitingForUpstream |
// Finished. Every exported function takes the current *State and returns an
// Action value naming the deferred resumptions the caller must perform once
// it has released whatever lock guards the State; no function here ever
// blocks or touches a handle.Handle's channel directly other than to store or
// clear the pointer.
//
// Both the suspending variant (bounded capacity, producer may park) and the
// queued variant (unbounded or overflow-policy bounded, producer never
// parks) are driven by the same State and the same RecvUpstream/Finish/
// Fail/CancelUpstream/CancelDownstream functions; they differ only in which
// Send function is used (SendSuspending vs SendQueued).
//
// The automaton supports exactly one parked producer and one parked
// consumer at a time, matching the single-producer/single-consumer contract
// a buffer operator sits in: one drainer goroutine sends, one downstream
// goroutine receives. A second concurrent waiter on either side is a
// programming error and panics rather than silently queueing, since the
// distilled transition table marks those cases "invalid".
package bufstate

import "github.com/fxsml/streams/handle"

// Option carries a buffer's delivered outcome to a consumer: a value (Ok),
// end-of-stream (neither Ok nor Err set), or a terminal failure (Err set).
type Option[T any] struct {
	Value T
	Ok    bool
	Err   error
}

// Some wraps v as a successful delivery.
func Some[T any](v T) Option[T] { return Option[T]{Value: v, Ok: true} }

// None represents end-of-stream.
func None[T any]() Option[T] { var z Option[T]; return z }

// ErrOption wraps a terminal failure.
func ErrOption[T any](err error) Option[T] { return Option[T]{Err: err} }

// State is the mutable automaton. The zero value is Idle with no error.
type State[T any] struct {
	Queue    []T
	Finished bool
	Err      error

	ParkedProducer *handle.Handle[struct{}]
	ParkedElem     T

	ParkedConsumer *handle.Handle[Option[T]]
}

// SendAction describes the deferred work for a Send-side transition.
type SendAction[T any] struct {
	// Immediate, when true, means the Send call itself completes now
	// without suspending.
	Immediate bool

	// Park, when non-nil, is the handle the Send call must Await after the
	// caller releases its lock (suspending buffer, at capacity).
	Park *handle.Handle[struct{}]

	// WakeConsumer, when non-nil, is a previously parked consumer handle
	// that must be resumed with ConsumerResult.
	WakeConsumer   *handle.Handle[Option[T]]
	ConsumerResult Option[T]
}

// RecvAction describes the deferred work for a Recv-side transition.
type RecvAction[T any] struct {
	// Immediate, when true, means the Recv call itself completes now with
	// Result, without suspending.
	Immediate bool
	Result    Option[T]

	// Park, when non-nil, is the handle the Recv call must Await after the
	// caller releases its lock.
	Park *handle.Handle[Option[T]]

	// WakeProducer, when non-nil, is a previously parked producer handle
	// that must be given a best-effort wake (no payload, never an error).
	WakeProducer *handle.Handle[struct{}]
}

// TerminateAction describes the deferred work for Finish/Fail/CancelUpstream/
// CancelDownstream.
type TerminateAction[T any] struct {
	WakeProducer    *handle.Handle[struct{}]
	ResolveConsumer *handle.Handle[Option[T]]
	ConsumerResult  Option[T]
}
