package taskhub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/durabletask/workitem"
	"google.golang.org/grpc"
)

// ErrStreamClosed is returned by Stream.Recv() and Stream.Close() when the
// stream has been closed by the worker.
var ErrStreamClosed = errors.New("stream is closed")

// MalformedFrameError is returned by Stream.Recv() when the engine sends a
// frame that can not be decoded into a work item. The stream remains open.
type MalformedFrameError struct {
	Kind  string
	Cause error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed '%s' frame: %s", e.Kind, e.Cause)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Cause
}

// Stream is an established task hub stream.
//
// Recv() must not be called concurrently with itself. Send() may be called
// concurrently with Recv() and with itself.
type Stream struct {
	stream grpc.ClientStream
	cancel context.CancelFunc
	items  chan workItemOrError
	once   sync.Once
	err    error

	// closing is closed when Close() is first called. done is closed when
	// consume() returns.
	closing     chan struct{}
	closingOnce sync.Once
	done        chan struct{}

	sendM sync.Mutex

	// lastActivity is the time at which the most recent frame of any kind
	// was received, as nanoseconds since the Unix epoch.
	lastActivity atomic.Int64
}

type workItemOrError struct {
	item workitem.WorkItem
	err  error
}

// Recv returns the next work item sent by the engine.
//
// It blocks until a work item is available, the stream fails or ctx is
// canceled. It returns io.EOF if the engine ended the stream without an
// error, or ErrStreamClosed if the stream was closed by a call to Close().
//
// Frames that can not be decoded are reported as a *MalformedFrameError
// without closing the stream.
func (s *Stream) Recv(ctx context.Context) (workitem.WorkItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case x, ok := <-s.items:
		if ok {
			return x.item, x.err
		}

		return nil, s.err
	}
}

// Send sends a completion to the engine.
func (s *Stream) Send(c workitem.Completion) error {
	f := marshalCompletion(c)

	s.sendM.Lock()
	defer s.sendM.Unlock()

	return s.stream.SendMsg(f)
}

// LastActivity returns the time at which the engine last sent a frame,
// including health pings.
func (s *Stream) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Close closes the stream.
//
// It half-closes the stream so that the engine receives every completion
// already passed to Send(), then waits for the engine to end the stream. If ctx
// is canceled first, the stream is torn down regardless and ctx.Err() is
// returned.
//
// Work items that arrive while closing are discarded.
//
// It returns ErrStreamClosed if Close() has already been called.
func (s *Stream) Close(ctx context.Context) error {
	first := false
	s.closingOnce.Do(func() {
		close(s.closing)
		first = true
	})

	if !first {
		return ErrStreamClosed
	}

	defer s.close(ErrStreamClosed)

	s.sendM.Lock()
	err := s.stream.CloseSend()
	s.sendM.Unlock()

	if err != nil {
		// The stream has already ended.
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close closes the stream. It returns false if it was already closed.
func (s *Stream) close(cause error) bool {
	ok := false

	s.once.Do(func() {
		s.cancel()
		s.err = cause
		ok = true
	})

	return ok
}

func (s *Stream) touch() {
	s.lastActivity.Store(now().UnixNano())
}

// consume receives frames and pipes the work items they carry over the
// s.items channel to the goroutine that calls Recv().
//
// It exits when the context associated with s.stream is canceled or some
// other error occurs while reading from the stream.
func (s *Stream) consume() {
	defer close(s.done)
	defer close(s.items)

	for {
		if err := s.recv(); err != nil {
			select {
			case <-s.closing:
				err = ErrStreamClosed
			default:
			}

			s.close(err)
			return
		}
	}
}

// recv waits for the next frame and, if it carries a work item, sends it over
// the s.items channel.
func (s *Stream) recv() error {
	// We can't pass ctx to RecvMsg(), but the stream is already bound to a
	// context.
	var f frame
	if err := s.stream.RecvMsg(&f); err != nil {
		return err
	}

	s.touch()

	if f.Kind == kindPing {
		return nil
	}

	item, err := unmarshalWorkItem(&f)
	if err != nil {
		err = &MalformedFrameError{f.Kind, err}
	}

	select {
	case s.items <- workItemOrError{item, err}:
		return nil
	case <-s.closing:
		return nil
	case <-s.stream.Context().Done():
		return s.stream.Context().Err()
	}
}
