package taskhub

import (
	"context"
	"sync"

	"github.com/dogmatiq/durabletask/internal/x/grpcx"
	"github.com/dogmatiq/durabletask/workitem"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Engine is the engine side of the task hub protocol.
type Engine interface {
	// Accept is called when a worker opens a stream. If it returns an error
	// the stream is rejected and the error is returned to the worker.
	Accept(ctx context.Context, h Hello) error

	// Serve is called once the handshake is complete. The stream is closed
	// when Serve returns.
	Serve(ctx context.Context, s *Session) error
}

// RegisterServer registers an engine with a gRPC server.
func RegisterServer(s grpc.ServiceRegistrar, e Engine) {
	s.RegisterService(
		&grpc.ServiceDesc{
			ServiceName: serviceName,
			HandlerType: (*Engine)(nil),
			Streams: []grpc.StreamDesc{
				{
					StreamName:    connectDesc.StreamName,
					Handler:       connect,
					ServerStreams: true,
					ClientStreams: true,
				},
			},
		},
		e,
	)
}

// connect handles a single task hub stream.
func connect(srv interface{}, ss grpc.ServerStream) error {
	e := srv.(Engine)
	ctx := ss.Context()

	var f frame
	if err := ss.RecvMsg(&f); err != nil {
		return err
	}

	if f.Kind != kindHello || f.Hello == nil {
		return grpcx.Errorf(
			codes.InvalidArgument,
			nil,
			"expected a '%s' frame, got '%s'",
			kindHello,
			f.Kind,
		)
	}

	if err := e.Accept(ctx, *f.Hello); err != nil {
		return err
	}

	if err := ss.SendMsg(&frame{Kind: kindReady}); err != nil {
		return err
	}

	return e.Serve(
		ctx,
		&Session{
			Hello:  *f.Hello,
			stream: ss,
		},
	)
}

// Session is the engine's view of an established stream.
type Session struct {
	// Hello is the handshake frame sent by the worker.
	Hello Hello

	stream grpc.ServerStream
	sendM  sync.Mutex
}

// Send delivers a work item to the worker.
//
// A *workitem.UnknownWorkItem is sent as a frame of its kind with no
// payload.
func (s *Session) Send(item workitem.WorkItem) error {
	return s.send(marshalWorkItem(item))
}

// Ping sends a health ping to the worker.
func (s *Session) Ping() error {
	return s.send(&frame{Kind: kindPing})
}

// Recv waits for the next completion sent by the worker.
func (s *Session) Recv() (workitem.Completion, error) {
	var f frame
	if err := s.stream.RecvMsg(&f); err != nil {
		return nil, err
	}

	return unmarshalCompletion(&f)
}

func (s *Session) send(f *frame) error {
	s.sendM.Lock()
	defer s.sendM.Unlock()

	return s.stream.SendMsg(f)
}

// TaskHubNotFound returns the error an engine returns from Engine.Accept()
// to indicate that it does not host the named task hub.
func TaskHubNotFound(name string) error {
	return grpcx.Errorf(
		codes.NotFound,
		[]proto.Message{wrapperspb.String(name)},
		"task hub '%s' not found",
		name,
	)
}

// IsTaskHubNotFound returns true if err indicates that the engine does not
// host the requested task hub.
func IsTaskHubNotFound(err error) bool {
	s, ok := status.FromError(err)
	if !ok || s.Code() != codes.NotFound {
		return false
	}

	for _, d := range s.Details() {
		if _, ok := d.(*wrapperspb.StringValue); ok {
			return true
		}
	}

	return false
}
