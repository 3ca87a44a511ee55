package tracing

import (
	"strconv"

	"github.com/dogmatiq/durabletask/workitem"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttributeSource is a function that sets attributes on a span.
type AttributeSource func(trace.Span)

var (
	// WorkItemKindKey is a span attribute key for the kind of a work item.
	WorkItemKindKey = attribute.Key("durabletask.work_item.kind")

	// TaskNameKey is a span attribute key for the name of the orchestrator,
	// activity or entity that a work item targets.
	TaskNameKey = attribute.Key("durabletask.task.name")

	// InstanceIDKey is a span attribute key for an orchestration instance ID.
	InstanceIDKey = attribute.Key("durabletask.instance_id")

	// TaskIDKey is a span attribute key for the sequence number of an
	// activity within its orchestration.
	TaskIDKey = attribute.Key("durabletask.task.id")

	// EntityIDKey is a span attribute key for an entity ID.
	EntityIDKey = attribute.Key("durabletask.entity.id")

	// OperationCountKey is a span attribute key for the number of operations
	// in an entity batch.
	OperationCountKey = attribute.Key("durabletask.entity.operation_count")

	// EventCountKey is a span attribute key for the number of new history
	// events in an orchestrator work item.
	EventCountKey = attribute.Key("durabletask.orchestrator.new_event_count")
)

var (
	// WorkItemKindOrchestratorAttr is a span attribute with the WorkItemKind
	// key set to "orchestrator".
	WorkItemKindOrchestratorAttr = WorkItemKindKey.String(workitem.OrchestratorKind)

	// WorkItemKindActivityAttr is a span attribute with the WorkItemKind key
	// set to "activity".
	WorkItemKindActivityAttr = WorkItemKindKey.String(workitem.ActivityKind)

	// WorkItemKindEntityBatchAttr is a span attribute with the WorkItemKind
	// key set to "entity-batch".
	WorkItemKindEntityBatchAttr = WorkItemKindKey.String(workitem.EntityBatchKind)
)

// WorkItemAttributes returns an attribute source that sets the standard
// attributes describing a work item.
func WorkItemAttributes(item workitem.WorkItem) AttributeSource {
	attrs := []attribute.KeyValue{
		WorkItemKindKey.String(item.Kind()),
	}

	switch item := item.(type) {
	case *workitem.OrchestratorWorkItem:
		attrs = append(
			attrs,
			TaskNameKey.String(item.Name),
			InstanceIDKey.String(item.InstanceID),
			EventCountKey.Int(len(item.NewEvents)),
		)
	case *workitem.ActivityWorkItem:
		attrs = append(
			attrs,
			TaskNameKey.String(item.Name),
			InstanceIDKey.String(item.InstanceID),
			TaskIDKey.String(strconv.FormatInt(int64(item.TaskID), 10)),
		)
	case *workitem.EntityBatchWorkItem:
		attrs = append(
			attrs,
			TaskNameKey.String(item.EntityID.Name),
			EntityIDKey.String(item.EntityID.String()),
			OperationCountKey.Int(len(item.Operations)),
		)
	}

	return func(s trace.Span) {
		s.SetAttributes(attrs...)
	}
}
