package entity

import (
	"context"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/internal/x/loggingx"
	"github.com/dogmatiq/durabletask/internal/x/syncx"
	"github.com/dogmatiq/durabletask/payload"
	"github.com/dogmatiq/durabletask/workitem"
)

// BatchExecutor applies batches of operations to entities.
type BatchExecutor struct {
	// Entities resolves entity names to implementations.
	Entities Registry

	// Converter is used to marshal operation results and entity state. If it
	// is nil, payload.DefaultConverter is used.
	Converter payload.Converter

	// Logger is the target for log messages produced by the executor.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	// locks serializes concurrent batches that target the same entity.
	locks syncx.KeyedMutex
}

// Execute applies the operations in item to the entity, strictly in order.
//
// Each operation observes the state left by the last successful operation
// before it. A failed operation's state change is discarded and does not
// prevent the remaining operations from executing.
//
// Concurrent batches that target the same entity are applied one at a time.
// Execution is not interrupted by the cancellation of ctx; a batch always runs
// to completion.
func (x *BatchExecutor) Execute(
	ctx context.Context,
	item *workitem.EntityBatchWorkItem,
) *workitem.EntityBatchCompletion {
	ctx = context.WithoutCancel(ctx)
	conv := converterOrDefault(x.Converter)

	c := &workitem.EntityBatchCompletion{
		EntityID: item.EntityID,
		Result: workitem.EntityBatchResult{
			Results: make([]workitem.OperationResult, 0, len(item.Operations)),
			State:   item.State,
		},
	}

	if len(item.Operations) == 0 {
		return c
	}

	unlock, err := x.locks.Lock(ctx, item.EntityID.String())
	if err != nil {
		// ctx can not be canceled.
		panic(err)
	}
	defer unlock()

	logger := loggingx.WithPrefix(x.Logger, "%s  ", item.EntityID)

	e, ok := x.Entities.Entity(item.EntityID.Name)
	if !ok {
		f := workitem.NewFailureDetails(NotFoundError{item.EntityID.Name})
		for range item.Operations {
			c.Result.Results = append(
				c.Result.Results,
				workitem.OperationResult{Failure: f},
			)
		}

		logging.Log(logger, "%s", f.ErrorMessage)

		return c
	}

	state := NewState(item.State, conv)

	for _, req := range item.Operations {
		op := NewOperation(item.EntityID, req.Operation, req.Input, conv)

		res, next := apply(ctx, e, op, state, conv)
		if res.Succeeded() {
			state = next
		} else {
			logging.Debug(
				logger,
				"operation '%s' failed, state rolled back: %s",
				req.Operation,
				res.Failure.ErrorMessage,
			)
		}

		c.Result.Results = append(c.Result.Results, res)
	}

	c.Result.State = state.Bytes()

	return c
}

// apply invokes a single operation, returning its result and the state to
// commit if it succeeded.
func apply(
	ctx context.Context,
	e Entity,
	op Operation,
	state State,
	conv payload.Converter,
) (res workitem.OperationResult, next State) {
	defer func() {
		if v := recover(); v != nil {
			res = workitem.OperationResult{
				Failure: workitem.NewPanicFailureDetails(v),
			}
			next = state
		}
	}()

	v, next, err := e.Handle(ctx, op, state)
	if err != nil {
		return workitem.OperationResult{
			Failure: workitem.NewFailureDetails(err),
		}, state
	}

	data, err := payload.Marshal(conv, v)
	if err != nil {
		return workitem.OperationResult{
			Failure: workitem.NewFailureDetails(err),
		}, state
	}

	if data == nil {
		// A successful result is never nil, even if the converter represents
		// v as empty data.
		data = []byte{}
	}

	return workitem.OperationResult{Result: data}, next
}
