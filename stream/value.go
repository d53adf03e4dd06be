package stream

import "github.com/fxsml/streams/stream/bufstate"

// Option is the delivery outcome handed to a parked consumer: a value, an
// end-of-stream signal, or (for channels that carry a failure type) a
// terminal error. Shared across Rendezvous, Throwing, Suspending and Queued
// so their consumer handles all speak the same vocabulary.
type Option[T any] = bufstate.Option[T]

// Some wraps v as a successful delivery.
func Some[T any](v T) Option[T] { return bufstate.Some(v) }

// None represents end-of-stream.
func None[T any]() Option[T] { return bufstate.None[T]() }

// ErrOf wraps a terminal failure.
func ErrOf[T any](err error) Option[T] { return bufstate.ErrOption[T](err) }
