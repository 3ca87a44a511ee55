package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/payload"
	"github.com/dogmatiq/durabletask/workitem"
)

// Executor invokes activities on behalf of the dispatcher.
type Executor struct {
	// Activities resolves activity names to implementations.
	Activities Registry

	// Converter is used to marshal activity outputs. If it is nil,
	// payload.DefaultConverter is used.
	Converter payload.Converter

	// Logger is the target for log messages produced by the executor.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger
}

// Execute invokes the activity described by item.
//
// Failures of the activity itself are reported within the completion. A
// non-nil error is returned only if the activity fails because ctx was
// canceled, in which case no completion must be sent.
func (x *Executor) Execute(
	ctx context.Context,
	item *workitem.ActivityWorkItem,
) (*workitem.ActivityCompletion, error) {
	c := &workitem.ActivityCompletion{
		InstanceID: item.InstanceID,
		Name:       item.Name,
		TaskID:     item.TaskID,
	}

	a, ok := x.Activities.Activity(item.Name)
	if !ok {
		c.Failure = workitem.NewFailureDetails(NotFoundError{item.Name})
		return c, nil
	}

	conv := x.Converter
	if conv == nil {
		conv = payload.DefaultConverter
	}

	in := NewInput(item.Name, item.InstanceID, item.TaskID, item.Input, conv)

	out, failure, err := run(ctx, a, in)
	if canceled(ctx, err) {
		return nil, ctx.Err()
	}

	if failure == nil {
		c.Result, failure = marshal(conv, out)
	}

	if failure != nil {
		logging.Debug(
			x.Logger,
			"%s: activity '%s#%d' failed: %s",
			item.InstanceID,
			item.Name,
			item.TaskID,
			failure.ErrorMessage,
		)

		c.Failure = failure
	}

	return c, nil
}

// run calls a.Run(), converting errors and panics into failure details. err is
// the error returned by a.Run(), if any.
func run(
	ctx context.Context,
	a Activity,
	in Input,
) (out interface{}, failure *workitem.FailureDetails, err error) {
	defer func() {
		if v := recover(); v != nil {
			failure = workitem.NewPanicFailureDetails(v)
		}
	}()

	out, err = a.Run(ctx, in)
	return out, workitem.NewFailureDetails(err), err
}

// canceled returns true if err is the result of ctx being canceled.
func canceled(ctx context.Context, err error) bool {
	if ctx.Err() == nil || err == nil {
		return false
	}

	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func marshal(c payload.Converter, v interface{}) ([]byte, *workitem.FailureDetails) {
	data, err := payload.Marshal(c, v)
	if err != nil {
		return nil, workitem.NewFailureDetails(
			fmt.Errorf("activity output could not be serialized: %w", err),
		)
	}

	return data, nil
}
