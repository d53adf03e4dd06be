package config

import "time"

// BufferConfig is the set of Buffer/Suspending/Queued tunables a deployment
// can override via environment variables, loaded with Load(stage, cfg).
//
//	STREAMS_<STAGE>_LIMIT=64
//	STREAMS_<STAGE>_POLICY=drop-oldest
//	STREAMS_<STAGE>_DRAIN_TIMEOUT=5s
type BufferConfig struct {
	// Limit is the suspending buffer's capacity, or the queued buffer's
	// overflow threshold (ignored for the unbounded policy).
	Limit int

	// Policy selects the queued buffer's overflow behavior: "", "unbounded",
	// "drop-oldest", or "drop-newest". Empty means the suspending variant.
	Policy string

	// DrainTimeout bounds how long CancelDownstream waits for the drainer
	// goroutine to observe cancellation before returning. Zero means
	// CancelDownstream does not wait for the drainer at all.
	DrainTimeout time.Duration
}
