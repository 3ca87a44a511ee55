package orchestration

import (
	"context"
	"errors"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/workitem"
)

// Executor invokes the replay engine on behalf of the dispatcher.
type Executor struct {
	// Engine is the replay engine used to execute orchestrations.
	Engine Engine

	// Logger is the target for log messages produced by the executor.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger
}

// Execute replays the orchestration described by item.
//
// Errors raised by the engine, including non-determinism and unhandled
// exceptions within the orchestrator, are reported within the completion. A
// non-nil error is returned only if the replay fails because ctx was canceled,
// in which case no completion must be sent.
func (x *Executor) Execute(
	ctx context.Context,
	item *workitem.OrchestratorWorkItem,
) (*workitem.OrchestratorCompletion, error) {
	actions, failure, err := x.replay(
		ctx,
		Request{
			Name:       item.Name,
			InstanceID: item.InstanceID,
			PastEvents: item.PastEvents,
			NewEvents:  item.NewEvents,
		},
	)

	if canceled(ctx, err) {
		return nil, ctx.Err()
	}

	if failure != nil {
		logging.Log(
			x.Logger,
			"%s: orchestrator '%s' failed: %s",
			item.InstanceID,
			item.Name,
			failure.ErrorMessage,
		)

		return &workitem.OrchestratorCompletion{
			InstanceID: item.InstanceID,
			Failure:    failure,
		}, nil
	}

	return &workitem.OrchestratorCompletion{
		InstanceID: item.InstanceID,
		Actions:    actions,
	}, nil
}

// replay calls the engine, converting errors and panics into failure details.
// err is the error returned by the engine, if any.
func (x *Executor) replay(
	ctx context.Context,
	req Request,
) (actions []workitem.Action, failure *workitem.FailureDetails, err error) {
	defer func() {
		if v := recover(); v != nil {
			actions = nil
			failure = workitem.NewPanicFailureDetails(v)
		}
	}()

	actions, err = x.Engine.Replay(ctx, req)
	if err != nil {
		return nil, workitem.NewFailureDetails(err), err
	}

	return actions, nil, nil
}

// canceled returns true if err is the result of ctx being canceled.
func canceled(ctx context.Context, err error) bool {
	if ctx.Err() == nil || err == nil {
		return false
	}

	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
