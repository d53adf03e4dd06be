package stream

import "github.com/fxsml/streams/streamlog"

// logAdapter is a thin convenience wrapper so call sites read "ch.log.warn"
// instead of threading streamlog.Func selection through every call.
type logAdapter struct {
	l streamlog.Logger
}

func newLogAdapter(l streamlog.Logger) *logAdapter {
	if l == nil {
		l = streamlog.Default()
	}
	return &logAdapter{l: l}
}

func (a *logAdapter) debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *logAdapter) warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *logAdapter) error(msg string, args ...any) { a.l.Error(msg, args...) }
