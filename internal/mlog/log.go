package mlog

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/durabletask/workitem"
)

// LogReceived logs a message indicating that a work item has been received
// from the engine.
func LogReceived(
	log logging.Logger,
	item workitem.WorkItem,
) {
	id, name, detail := describe(item)

	logging.LogString(
		log,
		String(
			[]IconWithLabel{IDIcon.WithID(id)},
			[]Icon{ReceiveIcon, WorkItemIcon(item), ""},
			name,
			detail,
		),
	)
}

// LogCompleted logs a message indicating that a completion for item has been
// sent to the engine.
//
// err is the error that occurred sending the completion, if any.
func LogCompleted(
	log logging.Logger,
	item workitem.WorkItem,
	c workitem.Completion,
	err error,
) {
	id, name, _ := describe(item)

	if err != nil {
		logging.LogString(
			log,
			String(
				[]IconWithLabel{IDIcon.WithID(id)},
				[]Icon{CompleteErrorIcon, WorkItemIcon(item), ErrorIcon},
				name,
				fmt.Sprintf("unable to send completion: %s", err),
			),
		)
		return
	}

	f := failureOf(c)

	icon := Icon("")
	outcome := "completed successfully"
	if f != nil {
		icon = ErrorIcon
		outcome = f.Error()
	}

	logging.LogString(
		log,
		String(
			[]IconWithLabel{IDIcon.WithID(id)},
			[]Icon{CompleteIcon, WorkItemIcon(item), icon},
			name,
			outcome,
		),
	)
}

// LogDropped logs a message indicating that a work item has been dropped
// without sending a completion to the engine.
func LogDropped(
	log logging.Logger,
	item workitem.WorkItem,
	cause error,
) {
	id, name, _ := describe(item)

	logging.LogString(
		log,
		String(
			[]IconWithLabel{IDIcon.WithID(id)},
			[]Icon{ReceiveErrorIcon, WorkItemIcon(item), ErrorIcon},
			name,
			cause.Error(),
		),
	)
}

// LogAbandoned logs a debug message indicating that a work item was abandoned
// because the worker is stopping. The engine redelivers abandoned work items.
func LogAbandoned(
	log logging.Logger,
	item workitem.WorkItem,
	cause error,
) {
	if !logging.IsDebug(log) {
		return
	}

	id, name, _ := describe(item)

	logging.DebugString(
		log,
		String(
			[]IconWithLabel{IDIcon.WithID(id)},
			[]Icon{ReceiveErrorIcon, WorkItemIcon(item), ""},
			name,
			fmt.Sprintf("abandoned: %s", cause),
		),
	)
}

// LogSystem logs a message about the internal state of the worker.
//
// If retry is true the message is shown with a retry icon.
func LogSystem(
	log logging.Logger,
	retry bool,
	f string, v ...interface{},
) {
	icon := Icon("")
	if retry {
		icon = RetryIcon
	}

	logging.LogString(
		log,
		String(
			nil,
			[]Icon{SystemIcon, icon},
			fmt.Sprintf(f, v...),
		),
	)
}

// describe returns the ID, name and a short description of a work item.
func describe(item workitem.WorkItem) (id, name, detail string) {
	switch item := item.(type) {
	case *workitem.OrchestratorWorkItem:
		return item.InstanceID,
			item.Name,
			plural(len(item.NewEvents), "new event")
	case *workitem.ActivityWorkItem:
		return item.InstanceID,
			item.Name,
			fmt.Sprintf("task #%d", item.TaskID)
	case *workitem.EntityBatchWorkItem:
		return item.EntityID.String(),
			item.EntityID.Name,
			plural(len(item.Operations), "operation")
	default:
		return "",
			item.Kind(),
			"unrecognized work item"
	}
}

func failureOf(c workitem.Completion) *workitem.FailureDetails {
	switch c := c.(type) {
	case *workitem.OrchestratorCompletion:
		return c.Failure
	case *workitem.ActivityCompletion:
		return c.Failure
	case *workitem.EntityBatchCompletion:
		n := 0
		for _, r := range c.Result.Results {
			if !r.Succeeded() {
				n++
			}
		}

		if n != 0 {
			return &workitem.FailureDetails{
				ErrorType:    "entity",
				ErrorMessage: fmt.Sprintf("%s failed", plural(n, "operation")),
			}
		}
	}

	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}
