package fixtures

import (
	"context"

	"github.com/dogmatiq/durabletask/orchestration"
	"github.com/dogmatiq/durabletask/taskhub"
	"github.com/dogmatiq/durabletask/workitem"
)

// TaskHubEngineStub is a test implementation of the taskhub.Engine interface.
type TaskHubEngineStub struct {
	AcceptFunc func(context.Context, taskhub.Hello) error
	ServeFunc  func(context.Context, *taskhub.Session) error
}

// Accept is called when a worker opens a stream.
//
// If e.AcceptFunc is non-nil, it returns e.AcceptFunc(ctx, h), otherwise it
// accepts the stream.
func (e *TaskHubEngineStub) Accept(ctx context.Context, h taskhub.Hello) error {
	if e.AcceptFunc != nil {
		return e.AcceptFunc(ctx, h)
	}

	return nil
}

// Serve is called once the handshake is complete.
//
// If e.ServeFunc is non-nil, it returns e.ServeFunc(ctx, s), otherwise it
// discards completions until the worker closes the stream.
func (e *TaskHubEngineStub) Serve(ctx context.Context, s *taskhub.Session) error {
	if e.ServeFunc != nil {
		return e.ServeFunc(ctx, s)
	}

	for {
		if _, err := s.Recv(); err != nil {
			return nil
		}
	}
}

// ReplayEngineStub is a test implementation of the orchestration.Engine
// interface.
type ReplayEngineStub struct {
	orchestration.Engine

	ReplayFunc func(context.Context, orchestration.Request) ([]workitem.Action, error)
}

// Replay replays an orchestration.
//
// If e.ReplayFunc is non-nil, it returns e.ReplayFunc(ctx, req). Otherwise,
// if e.Engine is non-nil it dispatches to e.Engine, otherwise it returns no
// actions.
func (e *ReplayEngineStub) Replay(
	ctx context.Context,
	req orchestration.Request,
) ([]workitem.Action, error) {
	if e.ReplayFunc != nil {
		return e.ReplayFunc(ctx, req)
	}

	if e.Engine != nil {
		return e.Engine.Replay(ctx, req)
	}

	return nil, nil
}
