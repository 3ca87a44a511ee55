package durabletask

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/activity"
	"github.com/dogmatiq/durabletask/dispatch"
	"github.com/dogmatiq/durabletask/entity"
	"github.com/dogmatiq/durabletask/internal/mlog"
	"github.com/dogmatiq/durabletask/orchestration"
	"github.com/dogmatiq/durabletask/semaphore"
	"github.com/dogmatiq/durabletask/taskhub"
	"github.com/dogmatiq/durabletask/workitem"
	"github.com/dogmatiq/linger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// tracerName is the name of the tracer obtained from the tracer provider.
const tracerName = "github.com/dogmatiq/durabletask"

// Worker receives work items from an orchestration engine and executes them.
type Worker struct {
	opts       *workerOptions
	provider   *connectionProvider
	dispatcher *dispatch.Dispatcher
	sem        semaphore.Semaphore
	state      atomic.Int32
}

// New returns a new worker that uses the given options.
func New(options ...WorkerOption) *Worker {
	opts := resolveWorkerOptions(options...)

	d := &dispatch.Dispatcher{}

	if opts.TracerProvider != nil {
		d.Tracer = opts.TracerProvider.Tracer(tracerName)
	}

	if opts.Orchestrations != nil {
		d.Orchestrations = &orchestration.Executor{
			Engine: opts.Orchestrations,
			Logger: opts.Logger,
		}
	}

	if opts.Activities != nil {
		d.Activities = &activity.Executor{
			Activities: opts.Activities,
			Converter:  opts.Converter,
			Logger:     opts.Logger,
		}
	}

	if opts.Entities != nil {
		d.Entities = &entity.BatchExecutor{
			Entities:  opts.Entities,
			Converter: opts.Converter,
			Logger:    opts.Logger,
		}
	}

	return &Worker{
		opts:       opts,
		provider:   &connectionProvider{opts},
		dispatcher: d,
		sem:        semaphore.New(int(opts.ConcurrencyLimit)),
	}
}

// State returns the current state of the worker's connection loop.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Run receives and executes work items until ctx is canceled or a fatal
// error occurs.
//
// It reconnects whenever the work item stream fails, waiting between
// consecutive failed attempts according to the reconnect backoff strategy.
//
// It returns nil if ctx is canceled. Otherwise it returns a *FatalError. A
// worker can only be run once.
func (w *Worker) Run(ctx context.Context) (err error) {
	if !w.state.CompareAndSwap(int32(Idle), int32(Connecting)) {
		panic("worker can not be run more than once")
	}

	start := time.Now()
	w.opts.Observers.WorkerStarted(w.provider.Target())

	defer func() {
		w.setState(Stopped)
		w.opts.Observers.WorkerStopped(time.Since(start), err)
	}()

	var cs connectionState

	for {
		if ctx.Err() != nil {
			return nil
		}

		w.setState(Connecting)
		err := w.session(ctx, &cs)

		if ctx.Err() != nil {
			return nil
		}

		if err == nil {
			// The connection was refreshed, reconnect without delay.
			continue
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return err
		}

		n := cs.failed()
		d := w.opts.ReconnectBackoff(err, n)

		w.setState(BackingOff)
		w.opts.Observers.BackingOff(n, d, err)

		if err := linger.Sleep(ctx, d); err != nil {
			return nil
		}
	}
}

// session acquires a connection, opens the work item stream and consumes
// work items until the stream fails, the connection expires or ctx is
// canceled.
//
// It returns nil if the connection expired.
func (w *Worker) session(ctx context.Context, cs *connectionState) (err error) {
	conn, err := w.provider.Acquire(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, conn.Release())
	}()

	w.opts.Observers.Connecting(conn.Target, conn.Source, cs.attempts)

	// The stream is not bound to ctx, so that the completions of work items
	// that are in-flight when ctx is canceled can still be sent. It is closed
	// explicitly once they have been sent.
	streamCtx, cancelStream := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelStream()

	stop := context.AfterFunc(ctx, cancelStream)
	stream, err := taskhub.NewClient(conn.Conn).Connect(
		streamCtx,
		taskhub.Hello{
			TaskHub:  w.opts.TaskHub,
			WorkerID: w.opts.WorkerID,
		},
	)
	stop()

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return classifyHandshakeError(conn.Target, err)
	}

	cs.established(time.Now())
	w.setState(Streaming)
	w.opts.Observers.Connected(conn.Target)

	err = w.consume(ctx, conn, stream, cs)
	w.endStream(ctx, stream)

	w.opts.Observers.Disconnected(
		conn.Target,
		cs.stats(time.Now(), stream.LastActivity()),
		err,
	)

	if errors.Is(err, ErrConnectionExpired) {
		return nil
	}

	return err
}

// consume receives work items from the stream and dispatches each of them on
// its own goroutine.
//
// It returns once receiving has stopped and every in-flight work item has
// finished.
func (w *Worker) consume(
	ctx context.Context,
	conn *connection,
	stream *taskhub.Stream,
	cs *connectionState,
) error {
	recvCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if conn.Lifetime > 0 {
		t := time.AfterFunc(conn.Lifetime, func() {
			cancel(ErrConnectionExpired)
		})
		defer t.Stop()
	}

	if w.opts.SilentDisconnectTimeout > 0 {
		go w.watch(recvCtx, stream, cancel)
	}

	var g errgroup.Group
	defer g.Wait() // nolint:errcheck

	for {
		item, err := stream.Recv(recvCtx)
		if err != nil {
			var malformed *taskhub.MalformedFrameError
			if errors.As(err, &malformed) {
				mlog.LogSystem(w.opts.Logger, false, "discarding work item: %s", err)
				continue
			}

			if cause := context.Cause(recvCtx); cause != nil {
				if errors.Is(cause, ErrSilentDisconnect) {
					return &StreamError{conn.Target, cause}
				}

				return cause
			}

			return &StreamError{conn.Target, err}
		}

		w.opts.Observers.WorkItemReceived(item)

		if !w.sem.TryAcquire() {
			logging.Debug(
				w.opts.Logger,
				"concurrency limit of %d reached, waiting for a work item to finish",
				w.sem.Limit(),
			)

			if err := w.sem.Acquire(recvCtx); err != nil {
				// The engine redelivers work items that are never completed.
				w.opts.Observers.WorkItemDropped(item, err)
				continue
			}
		}

		g.Go(func() error {
			defer w.sem.Release()
			w.handle(ctx, stream, item, cs)
			return nil
		})
	}
}

// handle dispatches a single work item and sends its completion.
func (w *Worker) handle(
	ctx context.Context,
	stream *taskhub.Stream,
	item workitem.WorkItem,
	cs *connectionState,
) {
	c, err := w.dispatcher.Dispatch(ctx, item)
	if err != nil {
		w.opts.Observers.WorkItemDropped(item, err)
		return
	}

	err = stream.Send(c)
	if err == nil {
		cs.processed.Add(1)
	}

	w.opts.Observers.WorkItemCompleted(item, c, err)
}

// endStream ends the stream once the completions of in-flight work items have
// been sent.
func (w *Worker) endStream(ctx context.Context, stream *taskhub.Stream) {
	ctx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx),
		w.opts.DrainTimeout,
	)
	defer cancel()

	if err := stream.Close(ctx); err != nil {
		mlog.LogSystem(
			w.opts.Logger,
			false,
			"engine did not end the stream within %s, closing anyway",
			w.opts.DrainTimeout,
		)
	}
}

// watch cancels the stream's receive context with ErrSilentDisconnect if
// nothing is received from the engine within the silent-disconnect timeout.
func (w *Worker) watch(
	ctx context.Context,
	stream *taskhub.Stream,
	cancel context.CancelCauseFunc,
) {
	timeout := w.opts.SilentDisconnectTimeout

	for {
		idle := time.Since(stream.LastActivity())
		if idle >= timeout {
			cancel(ErrSilentDisconnect)
			return
		}

		if err := linger.Sleep(ctx, timeout-idle); err != nil {
			return
		}
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}
