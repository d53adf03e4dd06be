package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/fxsml/streams/stream"
)

var (
	// ErrRetry is the base error for retry operations.
	ErrRetry = errors.New("streams retry")

	// ErrRetryMaxAttempts is returned when every retry attempt failed.
	ErrRetryMaxAttempts = fmt.Errorf("%w: max attempts reached", ErrRetry)

	// ErrRetryTimeout is returned when the overall retry budget is exhausted.
	ErrRetryTimeout = fmt.Errorf("%w: timeout reached", ErrRetry)

	// ErrRetryNotRetryable is returned when ShouldRetry rejects the error.
	ErrRetryNotRetryable = fmt.Errorf("%w: not retryable", ErrRetry)
)

// BackoffFunc returns the wait duration before retry attempt n (1-based).
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff returns delay on every attempt, randomized by ±jitter
// (0.0 = none, 0.2 = ±20%).
func ConstantBackoff(delay time.Duration, jitter float64) BackoffFunc {
	apply := newJitter(jitter)
	return func(int) time.Duration { return apply(delay) }
}

// ExponentialBackoff returns initialDelay*factor^(attempt-1), capped at
// maxDelay (0 = uncapped) and randomized by ±jitter.
func ExponentialBackoff(initialDelay time.Duration, factor float64, maxDelay time.Duration, jitter float64) BackoffFunc {
	apply := newJitter(jitter)
	return func(attempt int) time.Duration {
		d := time.Duration(float64(initialDelay) * math.Pow(factor, float64(attempt-1)))
		if maxDelay > 0 && d > maxDelay {
			d = maxDelay
		}
		return apply(d)
	}
}

func newJitter(jitter float64) func(time.Duration) time.Duration {
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return func(d time.Duration) time.Duration {
		factor := 1.0 + (rand.Float64()*2*jitter - jitter)
		return time.Duration(float64(d) * factor)
	}
}

// ShouldRetryFunc decides whether err should trigger another pull attempt.
type ShouldRetryFunc func(error) bool

// ShouldRetry retries only the named errors, or every error if none given.
func ShouldRetry(errs ...error) ShouldRetryFunc {
	if len(errs) == 0 {
		return func(error) bool { return true }
	}
	return func(err error) bool {
		for _, e := range errs {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// RetryConfig configures Retry.
type RetryConfig struct {
	// ShouldRetry decides which errors are retried. Default: retry all.
	ShouldRetry ShouldRetryFunc
	// Backoff produces the wait between attempts. Default: 1s ±20% jitter.
	Backoff BackoffFunc
	// MaxAttempts caps total pull attempts, including the first. Negative
	// means unlimited. Default: 3.
	MaxAttempts int
	// Timeout bounds all attempts combined. Negative means no timeout.
	// Default (zero): 1 minute.
	Timeout time.Duration
}

var defaultRetryConfig = RetryConfig{
	ShouldRetry: ShouldRetry(),
	Backoff:     ConstantBackoff(time.Second, 0.2),
	MaxAttempts: 3,
	Timeout:     time.Minute,
}

func (c RetryConfig) parse() RetryConfig {
	if c.ShouldRetry == nil {
		c.ShouldRetry = defaultRetryConfig.ShouldRetry
	}
	if c.Backoff == nil {
		c.Backoff = defaultRetryConfig.Backoff
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultRetryConfig.MaxAttempts
	} else if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.Timeout == 0 {
		c.Timeout = defaultRetryConfig.Timeout
	}
	return c
}

// Retry wraps src.Next so a failed pull is retried according to cfg instead
// of immediately surfacing the error. Does not retry end-of-stream
// (ok=false, err=nil) — only a non-nil error.
func Retry[T any](cfg RetryConfig) Middleware[T] {
	cfg = cfg.parse()
	return func(src stream.Source[T]) stream.Source[T] {
		return stream.SourceFunc[T](func(ctx context.Context) (T, bool, error) {
			start := time.Now()
			attempts := 0
			for {
				v, ok, err := src.Next(ctx)
				if err == nil {
					return v, ok, nil
				}
				attempts++
				var zero T
				if !cfg.ShouldRetry(err) {
					return zero, false, fmt.Errorf("%w: %v", ErrRetryNotRetryable, err)
				}
				if cfg.MaxAttempts > 0 && attempts >= cfg.MaxAttempts {
					return zero, false, fmt.Errorf("%w: %v", ErrRetryMaxAttempts, err)
				}
				var timeoutCh <-chan time.Time
				if cfg.Timeout > 0 {
					remaining := cfg.Timeout - time.Since(start)
					if remaining <= 0 {
						return zero, false, fmt.Errorf("%w: %v", ErrRetryTimeout, err)
					}
					timeoutCh = time.After(remaining)
				}
				select {
				case <-ctx.Done():
					return zero, false, ctx.Err()
				case <-timeoutCh:
					return zero, false, fmt.Errorf("%w: %v", ErrRetryTimeout, err)
				case <-time.After(cfg.Backoff(attempts)):
				}
			}
		})
	}
}
