//go:build streams_debug

package stream

// strictTermination, built with -tags streams_debug, makes a Fail call
// after termination panic instead of being silently ignored: the stricter
// variant named in this module's design for the documented
// fail-after-finish open question.
const strictTermination = true
