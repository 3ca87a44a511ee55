package taskhub

import (
	"fmt"
	"time"

	"github.com/dogmatiq/durabletask/workitem"
)

const (
	kindHello = "hello"
	kindReady = "ready"
	kindPing  = "ping"

	kindOrchestratorCompletion = "orchestrator-completion"
	kindActivityCompletion     = "activity-completion"
	kindEntityBatchCompletion  = "entity-batch-completion"
)

// Hello is the first frame sent by a worker on a new stream.
type Hello struct {
	// TaskHub is the name of the task hub that the worker serves.
	TaskHub string `json:"task_hub"`

	// WorkerID uniquely identifies the worker process.
	WorkerID string `json:"worker_id"`
}

// frame is a single message exchanged on the stream, in either direction.
//
// Kind determines which of the other fields is populated.
type frame struct {
	Kind string `json:"kind"`

	Hello        *Hello               `json:"hello,omitempty"`
	Orchestrator *orchestratorRequest `json:"orchestrator,omitempty"`
	Activity     *activityRequest     `json:"activity,omitempty"`
	EntityBatch  *entityBatchRequest  `json:"entity_batch,omitempty"`

	OrchestratorCompletion *orchestratorResponse `json:"orchestrator_completion,omitempty"`
	ActivityCompletion     *activityResponse     `json:"activity_completion,omitempty"`
	EntityBatchCompletion  *entityBatchResponse  `json:"entity_batch_completion,omitempty"`
}

type historyEvent struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data,omitempty"`
}

type action struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
	Data []byte `json:"data,omitempty"`
}

type failure struct {
	ErrorType      string   `json:"error_type"`
	ErrorMessage   string   `json:"error_message"`
	StackTrace     string   `json:"stack_trace,omitempty"`
	Inner          *failure `json:"inner,omitempty"`
	IsNonRetriable bool     `json:"is_non_retriable,omitempty"`
}

type orchestratorRequest struct {
	Name       string         `json:"name"`
	InstanceID string         `json:"instance_id"`
	PastEvents []historyEvent `json:"past_events,omitempty"`
	NewEvents  []historyEvent `json:"new_events,omitempty"`
}

type activityRequest struct {
	Name       string `json:"name"`
	TaskID     int32  `json:"task_id"`
	InstanceID string `json:"instance_id"`
	Input      []byte `json:"input,omitempty"`
}

type operationRequest struct {
	Operation string `json:"operation"`
	Input     []byte `json:"input,omitempty"`
}

type entityBatchRequest struct {
	EntityID   string             `json:"entity_id"`
	State      []byte             `json:"state,omitempty"`
	Operations []operationRequest `json:"operations,omitempty"`
}

type orchestratorResponse struct {
	InstanceID string   `json:"instance_id"`
	Actions    []action `json:"actions,omitempty"`
	Failure    *failure `json:"failure,omitempty"`
}

type activityResponse struct {
	InstanceID string   `json:"instance_id"`
	Name       string   `json:"name"`
	TaskID     int32    `json:"task_id"`
	Result     []byte   `json:"result,omitempty"`
	Failure    *failure `json:"failure,omitempty"`
}

type operationResult struct {
	Result  []byte   `json:"result,omitempty"`
	Failure *failure `json:"failure,omitempty"`
}

type entityBatchResponse struct {
	EntityID string            `json:"entity_id"`
	Results  []operationResult `json:"results"`
	State    []byte            `json:"state,omitempty"`
}

// marshalWorkItem returns the frame that carries item.
func marshalWorkItem(item workitem.WorkItem) *frame {
	f := &frame{Kind: item.Kind()}

	switch item := item.(type) {
	case *workitem.OrchestratorWorkItem:
		f.Orchestrator = &orchestratorRequest{
			Name:       item.Name,
			InstanceID: item.InstanceID,
			PastEvents: marshalHistory(item.PastEvents),
			NewEvents:  marshalHistory(item.NewEvents),
		}
	case *workitem.ActivityWorkItem:
		f.Activity = &activityRequest{
			Name:       item.Name,
			TaskID:     item.TaskID,
			InstanceID: item.InstanceID,
			Input:      item.Input,
		}
	case *workitem.EntityBatchWorkItem:
		req := &entityBatchRequest{
			EntityID: item.EntityID.String(),
			State:    item.State,
		}
		for _, op := range item.Operations {
			req.Operations = append(req.Operations, operationRequest(op))
		}
		f.EntityBatch = req
	}

	return f
}

// unmarshalWorkItem returns the work item carried by f.
//
// Frames of an unrecognized kind produce a *workitem.UnknownWorkItem.
func unmarshalWorkItem(f *frame) (workitem.WorkItem, error) {
	switch f.Kind {
	case workitem.OrchestratorKind:
		if f.Orchestrator == nil {
			return nil, missingPayload(f.Kind)
		}

		return &workitem.OrchestratorWorkItem{
			Name:       f.Orchestrator.Name,
			InstanceID: f.Orchestrator.InstanceID,
			PastEvents: unmarshalHistory(f.Orchestrator.PastEvents),
			NewEvents:  unmarshalHistory(f.Orchestrator.NewEvents),
		}, nil

	case workitem.ActivityKind:
		if f.Activity == nil {
			return nil, missingPayload(f.Kind)
		}

		return &workitem.ActivityWorkItem{
			Name:       f.Activity.Name,
			TaskID:     f.Activity.TaskID,
			InstanceID: f.Activity.InstanceID,
			Input:      f.Activity.Input,
		}, nil

	case workitem.EntityBatchKind:
		if f.EntityBatch == nil {
			return nil, missingPayload(f.Kind)
		}

		id, err := workitem.ParseEntityID(f.EntityBatch.EntityID)
		if err != nil {
			return nil, err
		}

		item := &workitem.EntityBatchWorkItem{
			EntityID: id,
			State:    f.EntityBatch.State,
		}
		for _, op := range f.EntityBatch.Operations {
			item.Operations = append(item.Operations, workitem.OperationRequest(op))
		}

		return item, nil

	default:
		return &workitem.UnknownWorkItem{Type: f.Kind}, nil
	}
}

// marshalCompletion returns the frame that carries c.
func marshalCompletion(c workitem.Completion) *frame {
	switch c := c.(type) {
	case *workitem.OrchestratorCompletion:
		res := &orchestratorResponse{
			InstanceID: c.InstanceID,
			Failure:    marshalFailure(c.Failure),
		}
		for _, a := range c.Actions {
			res.Actions = append(res.Actions, action(a))
		}

		return &frame{
			Kind:                   kindOrchestratorCompletion,
			OrchestratorCompletion: res,
		}

	case *workitem.ActivityCompletion:
		return &frame{
			Kind: kindActivityCompletion,
			ActivityCompletion: &activityResponse{
				InstanceID: c.InstanceID,
				Name:       c.Name,
				TaskID:     c.TaskID,
				Result:     c.Result,
				Failure:    marshalFailure(c.Failure),
			},
		}

	case *workitem.EntityBatchCompletion:
		res := &entityBatchResponse{
			EntityID: c.EntityID.String(),
			Results:  make([]operationResult, 0, len(c.Result.Results)),
			State:    c.Result.State,
		}
		for _, r := range c.Result.Results {
			res.Results = append(res.Results, operationResult{
				Result:  r.Result,
				Failure: marshalFailure(r.Failure),
			})
		}

		return &frame{
			Kind:                  kindEntityBatchCompletion,
			EntityBatchCompletion: res,
		}

	default:
		panic(fmt.Sprintf("unsupported completion type: %T", c))
	}
}

// unmarshalCompletion returns the completion carried by f.
func unmarshalCompletion(f *frame) (workitem.Completion, error) {
	switch f.Kind {
	case kindOrchestratorCompletion:
		res := f.OrchestratorCompletion
		if res == nil {
			return nil, missingPayload(f.Kind)
		}

		c := &workitem.OrchestratorCompletion{
			InstanceID: res.InstanceID,
			Failure:    unmarshalFailure(res.Failure),
		}
		for _, a := range res.Actions {
			c.Actions = append(c.Actions, workitem.Action(a))
		}

		return c, nil

	case kindActivityCompletion:
		res := f.ActivityCompletion
		if res == nil {
			return nil, missingPayload(f.Kind)
		}

		return &workitem.ActivityCompletion{
			InstanceID: res.InstanceID,
			Name:       res.Name,
			TaskID:     res.TaskID,
			Result:     res.Result,
			Failure:    unmarshalFailure(res.Failure),
		}, nil

	case kindEntityBatchCompletion:
		res := f.EntityBatchCompletion
		if res == nil {
			return nil, missingPayload(f.Kind)
		}

		id, err := workitem.ParseEntityID(res.EntityID)
		if err != nil {
			return nil, err
		}

		c := &workitem.EntityBatchCompletion{
			EntityID: id,
			Result: workitem.EntityBatchResult{
				Results: make([]workitem.OperationResult, 0, len(res.Results)),
				State:   res.State,
			},
		}
		for _, r := range res.Results {
			c.Result.Results = append(c.Result.Results, workitem.OperationResult{
				Result:  r.Result,
				Failure: unmarshalFailure(r.Failure),
			})
		}

		return c, nil

	default:
		return nil, fmt.Errorf("unexpected '%s' frame, expected a completion", f.Kind)
	}
}

func marshalHistory(events []workitem.HistoryEvent) []historyEvent {
	if len(events) == 0 {
		return nil
	}

	out := make([]historyEvent, len(events))
	for i, ev := range events {
		out[i] = historyEvent(ev)
	}
	return out
}

func unmarshalHistory(events []historyEvent) []workitem.HistoryEvent {
	if len(events) == 0 {
		return nil
	}

	out := make([]workitem.HistoryEvent, len(events))
	for i, ev := range events {
		out[i] = workitem.HistoryEvent(ev)
	}
	return out
}

func marshalFailure(f *workitem.FailureDetails) *failure {
	if f == nil {
		return nil
	}

	return &failure{
		ErrorType:      f.ErrorType,
		ErrorMessage:   f.ErrorMessage,
		StackTrace:     f.StackTrace,
		Inner:          marshalFailure(f.Inner),
		IsNonRetriable: f.IsNonRetriable,
	}
}

func unmarshalFailure(f *failure) *workitem.FailureDetails {
	if f == nil {
		return nil
	}

	return &workitem.FailureDetails{
		ErrorType:      f.ErrorType,
		ErrorMessage:   f.ErrorMessage,
		StackTrace:     f.StackTrace,
		Inner:          unmarshalFailure(f.Inner),
		IsNonRetriable: f.IsNonRetriable,
	}
}

func missingPayload(kind string) error {
	return fmt.Errorf("'%s' frame has no payload", kind)
}
