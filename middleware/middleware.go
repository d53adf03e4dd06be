// Package middleware wraps a stream.Source with cross-cutting behavior —
// retrying a failed pull, bounding a pull's duration — the same way the
// reference pipeline's middleware chain wraps a ProcessFunc, adapted from
// per-item processing to per-pull sourcing.
package middleware

import "github.com/fxsml/streams/stream"

// Middleware wraps a Source, producing a new Source with added behavior.
// Composable with Chain, mirroring the reference's Middleware[In, Out].
type Middleware[T any] func(stream.Source[T]) stream.Source[T]

// Chain applies middlewares to src in order, so the first middleware listed
// is the outermost wrapper (the first one to see a call on its way to src).
func Chain[T any](src stream.Source[T], mw ...Middleware[T]) stream.Source[T] {
	for i := len(mw) - 1; i >= 0; i-- {
		src = mw[i](src)
	}
	return src
}
