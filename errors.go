package durabletask

import (
	"errors"
	"fmt"
	"io"

	"github.com/dogmatiq/durabletask/internal/x/grpcx"
	"github.com/dogmatiq/durabletask/taskhub"
	"google.golang.org/grpc/codes"
)

var (
	// ErrConnectionExpired is reported to observers when the worker closes a
	// connection because it has reached its maximum lifetime. The worker
	// reconnects immediately, without any backoff delay.
	ErrConnectionExpired = errors.New("connection lifetime elapsed")

	// ErrSilentDisconnect is the cause of a StreamError that occurs when the
	// engine sends nothing at all within the silent-disconnect timeout.
	ErrSilentDisconnect = errors.New("no activity from the engine within the silent-disconnect timeout")
)

// ConnectionError indicates that the worker was unable to obtain a
// connection to the engine.
//
// The worker retries after a backoff delay.
type ConnectionError struct {
	Target string
	Cause  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to connect to %s: %s", e.Target, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// StreamError indicates that the work item stream could not be opened, or
// failed after it was established.
//
// The worker retries after a backoff delay.
type StreamError struct {
	Target string
	Cause  error
}

func (e *StreamError) Error() string {
	if e.Graceful() {
		return fmt.Sprintf("stream from %s ended unexpectedly", e.Target)
	}

	return fmt.Sprintf("stream from %s failed: %s", e.Target, e.Cause)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// NotFound returns true if the engine reported that it does not host the
// worker's task hub.
func (e *StreamError) NotFound() bool {
	return taskhub.IsTaskHubNotFound(e.Cause)
}

// Graceful returns true if the engine ended the stream without reporting an
// error.
func (e *StreamError) Graceful() bool {
	return errors.Is(e.Cause, io.EOF)
}

// FatalError indicates a condition that retrying can not resolve, such as a
// rejected credential. The worker stops and Run() returns the error.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error: %s", e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// classifyHandshakeError returns the error to report when the stream
// handshake fails.
func classifyHandshakeError(target string, err error) error {
	serr := &StreamError{target, err}

	switch grpcx.Code(err) {
	case codes.InvalidArgument,
		codes.Unimplemented,
		codes.PermissionDenied,
		codes.Unauthenticated:
		return &FatalError{serr}
	default:
		return serr
	}
}
