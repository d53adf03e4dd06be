package bufstate

import "errors"

// ErrDoubleWaiter is the panic value's cause when RecvUpstream/SendSuspending
// is called while a waiter of the same side is already parked, violating the
// single-producer/single-consumer contract these transitions assume.
var ErrDoubleWaiter = errors.New("bufstate: concurrent waiter on a single-sided buffer")

// Kind names the overflow behavior of a queued buffer when it is at capacity
// and a new element arrives while no consumer is parked.
type Kind int

const (
	// Unbounded never drops; the deque grows without limit.
	Unbounded Kind = iota
	// DropOldest retains already-buffered elements and discards the
	// incoming element once the deque has reached Limit.
	DropOldest
	// DropNewest evicts the oldest buffered element to make room for the
	// incoming element once the deque has reached Limit. Despite the name
	// (inherited from the algorithm this buffer reimplements), the element
	// discarded is the *oldest* one, not the arriving one: "newest wins".
	DropNewest
)

// Policy configures a queued buffer's overflow behavior. Limit must be > 0
// for any Kind other than Unbounded; constructing a Policy with a
// non-positive Limit for a bounded Kind is a programming error and the
// constructors in the stream package panic rather than accept it silently.
type Policy struct {
	Kind  Kind
	Limit int
}
