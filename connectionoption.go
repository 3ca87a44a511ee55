package durabletask

import (
	"time"

	"google.golang.org/grpc"
)

var (
	// DefaultAddress is the default address of the orchestration engine.
	//
	// It is overridden by the WithAddress() option.
	DefaultAddress = "localhost:4001"

	// DefaultKeepAliveTime is the default interval at which keep-alive probes
	// are sent on dialed connections, even when there are no active streams.
	//
	// It is overridden by the WithKeepAlive() option.
	DefaultKeepAliveTime = 30 * time.Second

	// DefaultKeepAliveTimeout is the default time to wait for a response to a
	// keep-alive probe before the connection is considered broken.
	//
	// It is overridden by the WithKeepAlive() option.
	DefaultKeepAliveTimeout = 30 * time.Second

	// DefaultConnectionLifetime is the default maximum lifetime of a dialed
	// connection. When it elapses the worker drains in-flight work items and
	// dials a new connection, allowing it to follow changes in DNS.
	//
	// It is overridden by the WithConnectionLifetime() option.
	DefaultConnectionLifetime = 24 * time.Hour
)

// WithAddress returns a worker option that sets the address of the
// orchestration engine.
//
// addr is a "host:port" pair, optionally prefixed with "http://" or
// "https://". The "https" scheme enables TLS. The address is validated when
// the worker connects; an invalid address produces a *ConnectionError.
//
// If this option is omitted or addr is empty, DefaultAddress is used. It has
// no effect if WithClientConn() or WithConn() is used.
func WithAddress(addr string) WorkerOption {
	return func(opts *workerOptions) {
		opts.Address = addr
	}
}

// WithClientConn returns a worker option that sets an existing gRPC
// connection to use instead of dialing the engine.
//
// The caller retains ownership of conn; the worker never closes it. It takes
// precedence over the WithConn() and WithAddress() options.
func WithClientConn(conn *grpc.ClientConn) WorkerOption {
	return func(opts *workerOptions) {
		opts.ClientConn = conn
	}
}

// WithConn returns a worker option that sets an existing gRPC call dispatcher
// to use instead of dialing the engine.
//
// The caller retains ownership of conn; the worker never closes it. It takes
// precedence over the WithAddress() option.
func WithConn(conn grpc.ClientConnInterface) WorkerOption {
	return func(opts *workerOptions) {
		opts.Conn = conn
	}
}

// WithDialOptions returns a worker option that adds gRPC dial options used
// when the worker dials the engine itself.
//
// They are applied after the worker's own options, and so take precedence.
func WithDialOptions(options ...grpc.DialOption) WorkerOption {
	return func(opts *workerOptions) {
		opts.DialOptions = append(opts.DialOptions, options...)
	}
}

// WithKeepAlive returns a worker option that sets the keep-alive parameters
// used on dialed connections.
//
// If this option is omitted or either duration is zero, the corresponding
// default is used.
func WithKeepAlive(t, timeout time.Duration) WorkerOption {
	if t < 0 || timeout < 0 {
		panic("duration must not be negative")
	}

	return func(opts *workerOptions) {
		opts.KeepAliveTime = t
		opts.KeepAliveTimeout = timeout
	}
}

// WithConnectionLifetime returns a worker option that sets the maximum
// lifetime of a dialed connection.
//
// If this option is omitted or d is zero, DefaultConnectionLifetime is used.
// It has no effect if WithClientConn() or WithConn() is used.
func WithConnectionLifetime(d time.Duration) WorkerOption {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *workerOptions) {
		opts.ConnectionLifetime = d
	}
}
