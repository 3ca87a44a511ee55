package workitem

// WorkItem is a unit of dispatchable work delivered by the engine.
//
// The set of implementations is closed; it is not possible to implement this
// interface outside of this package.
type WorkItem interface {
	// Kind returns a short human-readable name for the kind of work item.
	Kind() string

	isWorkItem()
}

const (
	// OrchestratorKind is the kind of an OrchestratorWorkItem.
	OrchestratorKind = "orchestrator"

	// ActivityKind is the kind of an ActivityWorkItem.
	ActivityKind = "activity"

	// EntityBatchKind is the kind of an EntityBatchWorkItem.
	EntityBatchKind = "entity-batch"
)

// OrchestratorWorkItem is a request to replay an orchestration instance.
type OrchestratorWorkItem struct {
	// Name is the name of the orchestrator to run.
	Name string

	// InstanceID is the ID of the orchestration instance.
	InstanceID string

	// PastEvents are the history events that have already been processed by
	// earlier executions of the orchestrator. They are replayed in order.
	PastEvents []HistoryEvent

	// NewEvents are the history events that have not yet been seen by the
	// orchestrator.
	NewEvents []HistoryEvent
}

// ActivityWorkItem is a request to invoke an activity.
type ActivityWorkItem struct {
	// Name is the name of the activity to invoke.
	Name string

	// TaskID identifies the activity call within the orchestration instance.
	TaskID int32

	// InstanceID is the ID of the orchestration instance that scheduled the
	// activity.
	InstanceID string

	// Input is the serialized activity input. It is nil if the activity was
	// scheduled without an input.
	Input []byte
}

// EntityBatchWorkItem is a request to apply a sequence of operations to a
// single entity.
type EntityBatchWorkItem struct {
	// EntityID is the ID of the target entity.
	EntityID EntityID

	// State is the entity's serialized state before the batch is applied. It
	// is nil if the entity has no state.
	State []byte

	// Operations is the ordered sequence of operations to apply.
	Operations []OperationRequest
}

// UnknownWorkItem is a work item of a kind that this worker does not
// recognize.
type UnknownWorkItem struct {
	// Type is the kind of work item as reported by the engine.
	Type string
}

// Kind returns OrchestratorKind.
func (*OrchestratorWorkItem) Kind() string { return OrchestratorKind }

// Kind returns ActivityKind.
func (*ActivityWorkItem) Kind() string { return ActivityKind }

// Kind returns EntityBatchKind.
func (*EntityBatchWorkItem) Kind() string { return EntityBatchKind }

// Kind returns the kind reported by the engine.
func (i *UnknownWorkItem) Kind() string { return i.Type }

func (*OrchestratorWorkItem) isWorkItem() {}
func (*ActivityWorkItem) isWorkItem()     {}
func (*EntityBatchWorkItem) isWorkItem()  {}
func (*UnknownWorkItem) isWorkItem()      {}
