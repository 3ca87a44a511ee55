package mlog

import (
	"fmt"
	"io"

	"github.com/dogmatiq/durabletask/workitem"
	"github.com/dogmatiq/iago/must"
)

const (
	// IDIcon is the icon shown directly before an orchestration instance ID or
	// entity ID. It is an "equals sign", indicating that the work item relates
	// to the instance that "has exactly" the displayed ID.
	IDIcon Icon = "="

	// ReceiveIcon is the icon shown to indicate that a work item has been
	// received from the engine. It is a downward pointing arrow, as such
	// "inbound" work could be considered as being "downloaded" from the
	// network.
	ReceiveIcon Icon = "▼"

	// ReceiveErrorIcon is a variant of ReceiveIcon used when a received work
	// item could not be handled. It is a hollow version of the regular
	// receive icon, indicating that the work remains "unfulfilled".
	ReceiveErrorIcon Icon = "▽"

	// CompleteIcon is the icon shown to indicate that a completion is being
	// sent to the engine. It is an upward pointing arrow, as such "outbound"
	// results could be considered as being "uploaded" to the network.
	CompleteIcon Icon = "▲"

	// CompleteErrorIcon is a variant of CompleteIcon used when a completion
	// could not be sent. It is a hollow version of the regular complete icon.
	CompleteErrorIcon Icon = "△"

	// RetryIcon is the icon shown when the worker is re-attempting to connect.
	// It is an open-circle with an arrow, indicating that the worker has "come
	// around again".
	RetryIcon Icon = "↻"

	// ErrorIcon is the icon shown when logging information about an error.
	// It is a heavy cross, indicating a failure.
	ErrorIcon Icon = "✖"

	// OrchestratorIcon is the icon shown when a log message relates to an
	// orchestrator work item. It is three horizontal lines, representing the
	// steps in a workflow.
	OrchestratorIcon Icon = "≡"

	// ActivityIcon is the icon shown when a log message relates to an activity
	// work item. It is the relational algebra "join" symbol, representing the
	// integration with an external system.
	ActivityIcon Icon = "⨝"

	// EntityIcon is the icon shown when a log message relates to an entity
	// batch work item. It is the mathematical "therefore" symbol,
	// representing the state changes that result from each operation.
	EntityIcon Icon = "∴"

	// SystemIcon is an icon shown when a log message relates to the internals
	// of the worker, such as its connection to the engine. It is a sprocket,
	// representing the inner workings of the machine.
	SystemIcon Icon = "⚙"

	// SeparatorIcon is an icon used to separate strings of unrelated text
	// inside a log message. It is a large bullet, intended to have a large
	// visual impact.
	SeparatorIcon Icon = "●"
)

// Icon is a unicode symbol used as an icon in log messages.
type Icon string

func (i Icon) String() string {
	return string(i)
}

// WriteTo writes a string representation of the icon to w.
// If i is the zero-value, a single space is rendered.
func (i Icon) WriteTo(w io.Writer) (int64, error) {
	s := i.String()
	if i == "" {
		s = " "
	}

	n, err := io.WriteString(w, s)
	return int64(n), err
}

// WithLabel return an IconWithLabel containing this icon and the given label.
func (i Icon) WithLabel(f string, v ...interface{}) IconWithLabel {
	return IconWithLabel{
		i,
		formatLabel(fmt.Sprintf(f, v...)),
	}
}

// WithID return an IconWithLabel containing this icon and an ID as its label.
//
// The id is formatted using FormatID().
func (i Icon) WithID(id string) IconWithLabel {
	return i.WithLabel("%s", FormatID(id))
}

// IconWithLabel is a container for an icon and its associated text label.
type IconWithLabel struct {
	Icon  Icon
	Label string
}

func (i IconWithLabel) String() string {
	return i.Icon.String() + " " + i.Label
}

// WriteTo writes a string representation of the icon and its label to w.
func (i IconWithLabel) WriteTo(w io.Writer) (_ int64, err error) {
	defer must.Recover(&err)

	n := must.WriteTo(w, i.Icon)
	n += must.WriteString(w, " ")
	n += must.WriteString(w, i.Label)

	return int64(n), err
}

// formatLabel formats a label for display.
func formatLabel(label string) string {
	if label == "" {
		return "-"
	}

	return label
}

// WorkItemIcon returns the icon to use for the given work item.
//
// It returns the zero-value for work items of an unrecognized kind.
func WorkItemIcon(item workitem.WorkItem) Icon {
	switch item.(type) {
	case *workitem.OrchestratorWorkItem:
		return OrchestratorIcon
	case *workitem.ActivityWorkItem:
		return ActivityIcon
	case *workitem.EntityBatchWorkItem:
		return EntityIcon
	default:
		return ""
	}
}
