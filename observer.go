package durabletask

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/dispatch"
	"github.com/dogmatiq/durabletask/internal/mlog"
	"github.com/dogmatiq/durabletask/workitem"
)

// Observer is notified of significant events within a worker.
//
// Observer methods are called synchronously, and the work item methods may be
// called concurrently. Implementations must not block.
type Observer interface {
	// WorkerStarted is called when the worker's Run() method is called.
	WorkerStarted(target string)

	// WorkerStopped is called when the worker stops. err is the error
	// returned by Run(), if any.
	WorkerStopped(d time.Duration, err error)

	// Connecting is called before each attempt to open the work item stream.
	// attempt is the number of consecutive failed attempts so far.
	Connecting(target, source string, attempt uint)

	// Connected is called when the stream handshake succeeds.
	Connected(target string)

	// Disconnected is called when an established stream ends.
	//
	// err describes the reason. It is ErrConnectionExpired if the connection
	// is being refreshed, or a context error if the worker is stopping.
	Disconnected(target string, stats ConnectionStats, err error)

	// BackingOff is called when the worker waits before reconnecting.
	BackingOff(attempt uint, delay time.Duration, cause error)

	// WorkItemReceived is called when a work item is received.
	WorkItemReceived(item workitem.WorkItem)

	// WorkItemCompleted is called after an attempt to send a completion to the
	// engine. err is the error that occurred sending the completion, if any.
	WorkItemCompleted(item workitem.WorkItem, c workitem.Completion, err error)

	// WorkItemDropped is called when a work item is discarded without sending
	// a completion.
	WorkItemDropped(item workitem.WorkItem, err error)
}

// ObserverSet is an Observer that notifies multiple other observers.
type ObserverSet []Observer

// WorkerStarted notifies each observer in the set.
func (s ObserverSet) WorkerStarted(target string) {
	for _, o := range s {
		o.WorkerStarted(target)
	}
}

// WorkerStopped notifies each observer in the set.
func (s ObserverSet) WorkerStopped(d time.Duration, err error) {
	for _, o := range s {
		o.WorkerStopped(d, err)
	}
}

// Connecting notifies each observer in the set.
func (s ObserverSet) Connecting(target, source string, attempt uint) {
	for _, o := range s {
		o.Connecting(target, source, attempt)
	}
}

// Connected notifies each observer in the set.
func (s ObserverSet) Connected(target string) {
	for _, o := range s {
		o.Connected(target)
	}
}

// Disconnected notifies each observer in the set.
func (s ObserverSet) Disconnected(target string, stats ConnectionStats, err error) {
	for _, o := range s {
		o.Disconnected(target, stats, err)
	}
}

// BackingOff notifies each observer in the set.
func (s ObserverSet) BackingOff(attempt uint, delay time.Duration, cause error) {
	for _, o := range s {
		o.BackingOff(attempt, delay, cause)
	}
}

// WorkItemReceived notifies each observer in the set.
func (s ObserverSet) WorkItemReceived(item workitem.WorkItem) {
	for _, o := range s {
		o.WorkItemReceived(item)
	}
}

// WorkItemCompleted notifies each observer in the set.
func (s ObserverSet) WorkItemCompleted(item workitem.WorkItem, c workitem.Completion, err error) {
	for _, o := range s {
		o.WorkItemCompleted(item, c, err)
	}
}

// WorkItemDropped notifies each observer in the set.
func (s ObserverSet) WorkItemDropped(item workitem.WorkItem, err error) {
	for _, o := range s {
		o.WorkItemDropped(item, err)
	}
}

// LoggingObserver is an Observer that writes to a logger.
type LoggingObserver struct {
	// Logger is the target for log messages. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger
}

// WorkerStarted logs that the worker is starting.
func (o LoggingObserver) WorkerStarted(target string) {
	mlog.LogSystem(o.Logger, false, "starting worker, engine is at %s", target)
}

// WorkerStopped logs that the worker has stopped.
func (o LoggingObserver) WorkerStopped(d time.Duration, err error) {
	if err != nil {
		mlog.LogSystem(o.Logger, false, "worker stopped after %s: %s", d, err)
		return
	}

	mlog.LogSystem(o.Logger, false, "worker stopped after %s", d)
}

// Connecting logs the connection attempt.
func (o LoggingObserver) Connecting(target, source string, attempt uint) {
	if attempt == 0 {
		logging.Debug(o.Logger, "opening work item stream to %s using %s", target, source)
		return
	}

	mlog.LogSystem(o.Logger, true, "reconnect attempt #%d to %s", attempt, target)
}

// Connected logs that the stream has been established.
func (o LoggingObserver) Connected(target string) {
	mlog.LogSystem(o.Logger, false, "work item stream established with %s", target)
}

// Disconnected logs the reason that the stream ended along with the
// connection statistics.
func (o LoggingObserver) Disconnected(target string, stats ConnectionStats, err error) {
	var serr *StreamError

	switch {
	case errors.Is(err, ErrConnectionExpired):
		mlog.LogSystem(
			o.Logger,
			false,
			"connection to %s reached its maximum lifetime, refreshing",
			target,
		)
	case errors.As(err, &serr) && serr.Graceful():
		mlog.LogSystem(
			o.Logger,
			false,
			"stream from %s ended gracefully, this is unusual",
			target,
		)
	case errors.Is(err, ErrSilentDisconnect):
		mlog.LogSystem(
			o.Logger,
			false,
			"no activity from %s for %s, assuming a silent disconnect",
			target,
			stats.SinceLastActivity.Round(time.Second),
		)
	}

	mlog.LogSystem(
		o.Logger,
		false,
		"disconnected from %s after %s, last activity %s ago, %d work item(s) processed",
		target,
		stats.Duration.Round(time.Millisecond),
		stats.SinceLastActivity.Round(time.Millisecond),
		stats.Processed,
	)
}

// BackingOff logs the delay before the next connection attempt, along with
// the error that caused the previous attempt to fail.
func (o LoggingObserver) BackingOff(attempt uint, delay time.Duration, cause error) {
	var serr *StreamError
	if errors.As(cause, &serr) && serr.NotFound() {
		mlog.LogSystem(o.Logger, false, "task hub not found, will continue retrying")
	}

	mlog.LogSystem(
		o.Logger,
		true,
		"waiting %s before reconnect attempt #%d: %s",
		delay,
		attempt,
		cause,
	)
}

// WorkItemReceived logs the received work item.
func (o LoggingObserver) WorkItemReceived(item workitem.WorkItem) {
	mlog.LogReceived(o.Logger, item)
}

// WorkItemCompleted logs the outcome of the work item.
func (o LoggingObserver) WorkItemCompleted(item workitem.WorkItem, c workitem.Completion, err error) {
	mlog.LogCompleted(o.Logger, item, c, err)
}

// WorkItemDropped logs the reason the work item was dropped.
func (o LoggingObserver) WorkItemDropped(item workitem.WorkItem, err error) {
	var derr *dispatch.DispatchError
	if errors.As(err, &derr) || !isContextError(err) {
		mlog.LogDropped(o.Logger, item, err)
		return
	}

	mlog.LogAbandoned(o.Logger, item, err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
