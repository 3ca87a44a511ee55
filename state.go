package durabletask

import (
	"sync/atomic"
	"time"
)

// State is the state of a worker's connection loop.
type State int32

const (
	// Idle is the state of a worker that has not been started.
	Idle State = iota

	// Connecting is the state of a worker that is acquiring a connection and
	// opening the work item stream.
	Connecting

	// Streaming is the state of a worker that is receiving work items.
	Streaming

	// BackingOff is the state of a worker that is waiting before it attempts
	// to reconnect.
	BackingOff

	// Stopped is the state of a worker whose Run() method has returned.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case BackingOff:
		return "backing off"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConnectionStats describes a single connection to the engine.
type ConnectionStats struct {
	// Duration is the time for which the stream was established.
	Duration time.Duration

	// SinceLastActivity is the time between the last frame received from the
	// engine and the end of the stream.
	SinceLastActivity time.Duration

	// Processed is the number of work items completed on the stream.
	Processed uint64
}

// connectionState is the state of the worker's current connection attempt.
//
// attempts is only accessed by the goroutine running the loop; processed is
// incremented by the goroutines that dispatch work items.
type connectionState struct {
	attempts    uint
	connectedAt time.Time
	processed   atomic.Uint64
}

// established records a successful stream handshake.
func (cs *connectionState) established(now time.Time) {
	cs.attempts = 0
	cs.connectedAt = now
	cs.processed.Store(0)
}

// failed records a failed connection attempt and returns the new attempt
// count.
func (cs *connectionState) failed() uint {
	cs.attempts++
	return cs.attempts
}

// stats returns the statistics for the connection that ended at now.
func (cs *connectionState) stats(now, lastActivity time.Time) ConnectionStats {
	return ConnectionStats{
		Duration:          now.Sub(cs.connectedAt),
		SinceLastActivity: now.Sub(lastActivity),
		Processed:         cs.processed.Load(),
	}
}
