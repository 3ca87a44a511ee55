// Package activity executes activity work items.
package activity

import (
	"context"

	"github.com/dogmatiq/durabletask/payload"
)

// Activity is a user-supplied unit of work invoked by an orchestration.
type Activity interface {
	// Run executes the activity. The returned value is serialized and sent to
	// the engine as the activity's output.
	Run(ctx context.Context, in Input) (interface{}, error)
}

// Func is an adaptor that allows an ordinary function to be used as an
// Activity.
type Func func(ctx context.Context, in Input) (interface{}, error)

// Run calls fn(ctx, in).
func (fn Func) Run(ctx context.Context, in Input) (interface{}, error) {
	return fn(ctx, in)
}

// Typed returns an Activity that unmarshals its input into a value of type I
// before calling fn.
func Typed[I, O any](fn func(context.Context, I) (O, error)) Activity {
	return Func(func(ctx context.Context, in Input) (interface{}, error) {
		var v I
		if err := in.Get(&v); err != nil {
			return nil, err
		}

		return fn(ctx, v)
	})
}

// Input is the input to a single activity invocation.
type Input struct {
	Name       string
	InstanceID string
	TaskID     int32

	data      []byte
	converter payload.Converter
}

// NewInput returns an activity input containing the serialized data.
func NewInput(name, instanceID string, taskID int32, data []byte, c payload.Converter) Input {
	return Input{
		Name:       name,
		InstanceID: instanceID,
		TaskID:     taskID,
		data:       data,
		converter:  c,
	}
}

// Get unmarshals the input into v. v is left untouched if the activity was
// scheduled without an input.
func (in Input) Get(v interface{}) error {
	c := in.converter
	if c == nil {
		c = payload.DefaultConverter
	}

	return payload.Unmarshal(c, in.data, v)
}

// Raw returns the serialized input.
func (in Input) Raw() []byte {
	return in.data
}

// Registry resolves activities by name.
type Registry interface {
	Activity(name string) (Activity, bool)
}
