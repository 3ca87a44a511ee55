package dispatch

import "fmt"

// DispatchError indicates that a work item could not be routed to an
// executor.
//
// Work items that produce a DispatchError are dropped. No completion is sent
// to the engine and the stream remains open.
type DispatchError struct {
	// Kind is the kind of the work item that could not be dispatched.
	Kind string

	// Reason is a human-readable explanation of the failure.
	Reason string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("unable to dispatch '%s' work item: %s", e.Kind, e.Reason)
}
