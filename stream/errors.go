package stream

import (
	"errors"

	"github.com/fxsml/streams/stream/bufstate"
)

// ErrInvalidLimit is the panic value's cause when a bounded buffer is
// constructed with a non-positive limit. Non-positive limits are a
// programming error (§6.D/6.E of this module's design), not a runtime
// condition a caller should recover from, so constructors panic with this
// error rather than returning it.
var ErrInvalidLimit = errors.New("stream: buffer limit must be > 0")

// ErrDoubleWaiter is the panic value's cause when two goroutines attempt to
// park on the same side (producer or consumer) of a single-producer/
// single-consumer buffer at once. Re-exported from bufstate, which is where
// Suspending and Queued actually raise it.
var ErrDoubleWaiter = bufstate.ErrDoubleWaiter
