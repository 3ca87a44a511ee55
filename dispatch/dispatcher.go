// Package dispatch routes work items to the executor that handles their kind.
package dispatch

import (
	"context"

	"github.com/dogmatiq/durabletask/activity"
	"github.com/dogmatiq/durabletask/entity"
	"github.com/dogmatiq/durabletask/internal/tracing"
	"github.com/dogmatiq/durabletask/orchestration"
	"github.com/dogmatiq/durabletask/workitem"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Dispatcher routes work items to executors.
type Dispatcher struct {
	// Orchestrations executes orchestrator work items. If it is nil,
	// orchestrator work items can not be dispatched.
	Orchestrations *orchestration.Executor

	// Activities executes activity work items. If it is nil, activity work
	// items can not be dispatched.
	Activities *activity.Executor

	// Entities executes entity batch work items. If it is nil, entity batch
	// work items can not be dispatched.
	Entities *entity.BatchExecutor

	// Tracer is used to record a span for each dispatched work item. If it is
	// nil, no spans are recorded.
	Tracer trace.Tracer
}

// Dispatch executes item and returns the completion to send to the engine.
//
// Failures within user code are reported within the completion. It returns a
// *DispatchError if item can not be routed to an executor, or a context error
// if the work item fails because ctx was canceled; in both cases no completion
// must be sent.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	item workitem.WorkItem,
) (_ workitem.Completion, err error) {
	tracer := d.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	ctx, span := tracer.Start(
		ctx,
		"durabletask.dispatch "+item.Kind(),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	tracing.WorkItemAttributes(item)(span)

	c, failure, err := d.dispatch(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "work item was not completed")
		return nil, err
	}

	if failure != nil {
		span.SetStatus(codes.Error, failure.Error())
	}

	return c, nil
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	item workitem.WorkItem,
) (workitem.Completion, *workitem.FailureDetails, error) {
	switch item := item.(type) {
	case *workitem.OrchestratorWorkItem:
		if d.Orchestrations == nil {
			return nil, nil, notConfigured(item)
		}

		c, err := d.Orchestrations.Execute(ctx, item)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Failure, nil

	case *workitem.ActivityWorkItem:
		if d.Activities == nil {
			return nil, nil, notConfigured(item)
		}

		c, err := d.Activities.Execute(ctx, item)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Failure, nil

	case *workitem.EntityBatchWorkItem:
		if d.Entities == nil {
			return nil, nil, notConfigured(item)
		}

		c := d.Entities.Execute(ctx, item)
		return c, firstFailure(c.Result.Results), nil

	default:
		return nil, nil, &DispatchError{
			Kind:   item.Kind(),
			Reason: "unrecognized work item kind",
		}
	}
}

func notConfigured(item workitem.WorkItem) error {
	return &DispatchError{
		Kind:   item.Kind(),
		Reason: "no executor is configured for this kind",
	}
}

func firstFailure(results []workitem.OperationResult) *workitem.FailureDetails {
	for _, r := range results {
		if !r.Succeeded() {
			return r.Failure
		}
	}

	return nil
}
