//go:build !streams_debug

package stream

// strictTermination controls whether a Fail call after a channel has already
// reached a terminal state panics (strict, debug build) or is silently
// ignored (default; first terminal event wins). See DESIGN.md's open
// question resolution.
const strictTermination = false
