package middleware

import (
	"context"
	"time"

	"github.com/fxsml/streams/stream"
)

// Timeout wraps src.Next with a per-pull timeout derived from the caller's
// context. Zero or negative duration disables the wrapper (returns src
// unchanged).
func Timeout[T any](d time.Duration) Middleware[T] {
	return func(src stream.Source[T]) stream.Source[T] {
		if d <= 0 {
			return src
		}
		return stream.SourceFunc[T](func(ctx context.Context) (T, bool, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return src.Next(ctx)
		})
	}
}
