package workitem

// Completion is the result of a work item, written back to the engine.
//
// The set of implementations is closed; it is not possible to implement this
// interface outside of this package.
type Completion interface {
	isCompletion()
}

// OrchestratorCompletion is the result of an OrchestratorWorkItem.
type OrchestratorCompletion struct {
	InstanceID string

	// Actions is the list of actions computed by the replay engine. It is
	// empty if Failure is non-nil.
	Actions []Action

	// Failure is non-nil if the orchestrator failed.
	Failure *FailureDetails
}

// ActivityCompletion is the result of an ActivityWorkItem.
type ActivityCompletion struct {
	InstanceID string
	Name       string
	TaskID     int32

	// Result is the serialized activity output. It is nil if Failure is
	// non-nil.
	Result []byte

	// Failure is non-nil if the activity failed.
	Failure *FailureDetails
}

// EntityBatchCompletion is the result of an EntityBatchWorkItem.
type EntityBatchCompletion struct {
	EntityID EntityID
	Result   EntityBatchResult
}

func (*OrchestratorCompletion) isCompletion() {}
func (*ActivityCompletion) isCompletion()     {}
func (*EntityBatchCompletion) isCompletion()  {}
