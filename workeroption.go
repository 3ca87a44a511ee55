package durabletask

import (
	"runtime"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/activity"
	"github.com/dogmatiq/durabletask/entity"
	"github.com/dogmatiq/durabletask/orchestration"
	"github.com/dogmatiq/durabletask/payload"
	"github.com/dogmatiq/durabletask/reconnect"
	"github.com/dogmatiq/linger/backoff"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

var (
	// DefaultTaskHub is the default name of the task hub from which the
	// worker receives work items.
	//
	// It is overridden by the WithTaskHub() option.
	DefaultTaskHub = "default"

	// DefaultReconnectBackoff is the default backoff strategy used to delay
	// reconnect attempts.
	//
	// It is overridden by the WithReconnectBackoff() option.
	DefaultReconnectBackoff backoff.Strategy = reconnect.Strategy

	// DefaultConcurrencyLimit is the default number of work items to dispatch
	// concurrently.
	//
	// It is overridden by the WithConcurrencyLimit() option.
	DefaultConcurrencyLimit = uint(runtime.GOMAXPROCS(0) * 2)

	// DefaultDrainTimeout is the default maximum time to wait for the engine
	// to end a stream after the worker has sent its final completions.
	//
	// It is overridden by the WithDrainTimeout() option.
	DefaultDrainTimeout = 5 * time.Second

	// DefaultLogger is the default target for log messages produced by the
	// worker.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// WorkerOption configures the behavior of a worker.
type WorkerOption func(*workerOptions)

// WithTaskHub returns a worker option that sets the name of the task hub from
// which the worker receives work items.
//
// If this option is omitted or name is empty, DefaultTaskHub is used.
func WithTaskHub(name string) WorkerOption {
	return func(opts *workerOptions) {
		opts.TaskHub = name
	}
}

// WithWorkerID returns a worker option that sets the identity the worker
// presents to the engine.
//
// If this option is omitted or id is empty, a random UUID is used.
func WithWorkerID(id string) WorkerOption {
	return func(opts *workerOptions) {
		opts.WorkerID = id
	}
}

// WithOrchestrationEngine returns a worker option that sets the engine used
// to replay orchestrations.
//
// If this option is omitted, orchestrator work items are dropped.
func WithOrchestrationEngine(e orchestration.Engine) WorkerOption {
	return func(opts *workerOptions) {
		opts.Orchestrations = e
	}
}

// WithActivities returns a worker option that sets the registry used to
// resolve activities.
//
// If this option is omitted, activity work items are dropped.
func WithActivities(r activity.Registry) WorkerOption {
	return func(opts *workerOptions) {
		opts.Activities = r
	}
}

// WithEntities returns a worker option that sets the registry used to
// resolve entities.
//
// If this option is omitted, entity batch work items are dropped.
func WithEntities(r entity.Registry) WorkerOption {
	return func(opts *workerOptions) {
		opts.Entities = r
	}
}

// WithReconnectBackoff returns a worker option that sets the backoff strategy
// used to delay reconnect attempts.
//
// The attempt number passed to the strategy starts at 1 for the first failed
// attempt and is reset whenever a stream is established.
//
// If this option is omitted or s is nil, DefaultReconnectBackoff is used.
func WithReconnectBackoff(s backoff.Strategy) WorkerOption {
	return func(opts *workerOptions) {
		opts.ReconnectBackoff = s
	}
}

// WithConcurrencyLimit returns a worker option that limits the number of work
// items that are dispatched at the same time.
//
// If this option is omitted or n is zero, DefaultConcurrencyLimit is used.
func WithConcurrencyLimit(n uint) WorkerOption {
	return func(opts *workerOptions) {
		opts.ConcurrencyLimit = n
	}
}

// WithSilentDisconnectTimeout returns a worker option that sets the duration
// after which a stream on which nothing has been received, not even a health
// ping, is considered broken.
//
// If this option is omitted or d is zero, silent disconnects are not
// detected.
func WithSilentDisconnectTimeout(d time.Duration) WorkerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *workerOptions) {
		opts.SilentDisconnectTimeout = d
	}
}

// WithDrainTimeout returns a worker option that sets the maximum time to wait
// for the engine to end a stream after the worker has stopped receiving and
// sent the completions of its in-flight work items.
//
// If this option is omitted or d is zero, DefaultDrainTimeout is used.
func WithDrainTimeout(d time.Duration) WorkerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *workerOptions) {
		opts.DrainTimeout = d
	}
}

// WithConverter returns a worker option that sets the converter used to
// marshal activity outputs, operation results and entity state.
//
// If this option is omitted or c is nil, payload.DefaultConverter is used.
func WithConverter(c payload.Converter) WorkerOption {
	return func(opts *workerOptions) {
		opts.Converter = c
	}
}

// WithLogger returns a worker option that sets the target for log messages
// produced by the worker.
//
// If this option is omitted or l is nil, DefaultLogger is used.
func WithLogger(l logging.Logger) WorkerOption {
	return func(opts *workerOptions) {
		opts.Logger = l
	}
}

// WithObserver returns a worker option that adds an observer that is notified
// of significant events within the worker.
//
// A LoggingObserver that writes to the worker's logger is always present.
func WithObserver(o Observer) WorkerOption {
	return func(opts *workerOptions) {
		opts.Observers = append(opts.Observers, o)
	}
}

// WithTracerProvider returns a worker option that sets the provider of the
// tracer used to record a span for each dispatched work item.
//
// If this option is omitted or p is nil, no spans are recorded.
func WithTracerProvider(p trace.TracerProvider) WorkerOption {
	return func(opts *workerOptions) {
		opts.TracerProvider = p
	}
}

// workerOptions is a container for a fully-resolved set of worker options.
type workerOptions struct {
	Address                 string
	ClientConn              *grpc.ClientConn
	Conn                    grpc.ClientConnInterface
	DialOptions             []grpc.DialOption
	KeepAliveTime           time.Duration
	KeepAliveTimeout        time.Duration
	ConnectionLifetime      time.Duration
	TaskHub                 string
	WorkerID                string
	Orchestrations          orchestration.Engine
	Activities              activity.Registry
	Entities                entity.Registry
	ReconnectBackoff        backoff.Strategy
	ConcurrencyLimit        uint
	SilentDisconnectTimeout time.Duration
	DrainTimeout            time.Duration
	Converter               payload.Converter
	Logger                  logging.Logger
	Observers               ObserverSet
	TracerProvider          trace.TracerProvider
}

// resolveWorkerOptions returns a fully-populated set of worker options built
// from the given set of option functions.
func resolveWorkerOptions(options ...WorkerOption) *workerOptions {
	opts := &workerOptions{}

	for _, o := range options {
		o(opts)
	}

	if opts.Address == "" {
		opts.Address = DefaultAddress
	}

	if opts.KeepAliveTime == 0 {
		opts.KeepAliveTime = DefaultKeepAliveTime
	}

	if opts.KeepAliveTimeout == 0 {
		opts.KeepAliveTimeout = DefaultKeepAliveTimeout
	}

	if opts.ConnectionLifetime == 0 {
		opts.ConnectionLifetime = DefaultConnectionLifetime
	}

	if opts.TaskHub == "" {
		opts.TaskHub = DefaultTaskHub
	}

	if opts.WorkerID == "" {
		opts.WorkerID = uuid.NewString()
	}

	if opts.ReconnectBackoff == nil {
		opts.ReconnectBackoff = DefaultReconnectBackoff
	}

	if opts.ConcurrencyLimit == 0 {
		opts.ConcurrencyLimit = DefaultConcurrencyLimit
	}

	if opts.DrainTimeout == 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}

	if opts.Converter == nil {
		opts.Converter = payload.DefaultConverter
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	opts.Observers = append(
		ObserverSet{LoggingObserver{opts.Logger}},
		opts.Observers...,
	)

	return opts
}
