// Package stream implements the back-pressured rendezvous channel, the
// throwing buffered channel, the suspending and queued buffer operators, the
// upstream drainer adapter, and the fan-out splitter described by this
// module's design: a small set of mutex-protected state machines plus
// externally-held suspension handles (package handle) for moving values
// between concurrently executing producers and consumers.
//
// Every suspending operation takes a context.Context and returns promptly
// when that context is done; a cancelled caller never leaks its waiter slot
// in the owning state machine.
package stream

import "context"

// Source is the external lazy-sequence contract this module drains from: a
// value that can be pulled one element at a time, reporting end-of-stream
// with ok=false and a terminal failure via a non-nil error. Once Next has
// returned ok=false or a non-nil error, subsequent calls must keep returning
// the same terminal signal.
type Source[T any] interface {
	Next(ctx context.Context) (v T, ok bool, err error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context) (T, bool, error)

// Next calls f.
func (f SourceFunc[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }

// Receiver is the consumer-side contract satisfied by every channel and
// buffer in this module: Recv suspends until a value is delivered, the
// stream ends (ok=false, err=nil), or it fails terminally (err!=nil).
type Receiver[T any] interface {
	Recv(ctx context.Context) (v T, ok bool, err error)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc[T any] func(ctx context.Context) (T, bool, error)

// Recv calls f.
func (f ReceiverFunc[T]) Recv(ctx context.Context) (T, bool, error) { return f(ctx) }

// FromSlice returns a Source that yields each element of vs in order, then
// ends the stream. Useful for tests and for seeding a BufferedSequence from
// static data.
func FromSlice[T any](vs []T) Source[T] {
	i := 0
	return SourceFunc[T](func(ctx context.Context) (T, bool, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		if i >= len(vs) {
			return zero, false, nil
		}
		v := vs[i]
		i++
		return v, true, nil
	})
}

// Drain pulls every value from r until it ends, discarding values, and
// returns the terminal error if any. Intended for tests and for sinks that
// only care about side effects performed by a wrapped handle function.
func Drain[T any](ctx context.Context, r Receiver[T]) error {
	for {
		_, ok, err := r.Recv(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Collect pulls every value from r until it ends and returns them in order,
// or the terminal error if Recv ever fails.
func Collect[T any](ctx context.Context, r Receiver[T]) ([]T, error) {
	var out []T
	for {
		v, ok, err := r.Recv(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
