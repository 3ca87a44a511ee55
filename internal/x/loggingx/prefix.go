package loggingx

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
)

// Prefixed is a logger that adds a fixed prefix to each message.
type Prefixed struct {
	// Target is the logger that receives the prefixed messages. If it is nil,
	// logging.DefaultLogger is used.
	Target logging.Logger

	// Prefix is prepended to each message, verbatim.
	Prefix string
}

var _ logging.Logger = Prefixed{}

// WithPrefix returns a logger that adds a prefix to each message written to
// target.
//
// The prefix is formatted from f and v according to the rules of
// fmt.Sprintf().
func WithPrefix(target logging.Logger, f string, v ...interface{}) Prefixed {
	return Prefixed{target, fmt.Sprintf(f, v...)}
}

// Log writes an application log message formatted according to a format
// specifier.
func (l Prefixed) Log(f string, v ...interface{}) {
	l.LogString(fmt.Sprintf(f, v...))
}

// LogString writes a pre-formatted application log message.
func (l Prefixed) LogString(s string) {
	logging.LogString(l.Target, l.Prefix+s)
}

// Debug writes a debug log message formatted according to a format
// specifier.
func (l Prefixed) Debug(f string, v ...interface{}) {
	if l.IsDebug() {
		l.DebugString(fmt.Sprintf(f, v...))
	}
}

// DebugString writes a pre-formatted debug log message.
func (l Prefixed) DebugString(s string) {
	logging.DebugString(l.Target, l.Prefix+s)
}

// IsDebug returns true if the target logs debug messages.
func (l Prefixed) IsDebug() bool {
	return logging.IsDebug(l.Target)
}
