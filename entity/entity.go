// Package entity executes batches of entity operations.
package entity

import (
	"context"

	"github.com/dogmatiq/durabletask/payload"
	"github.com/dogmatiq/durabletask/workitem"
)

// Entity is a user-supplied implementation of a durable entity.
type Entity interface {
	// Handle applies a single operation to the entity.
	//
	// state is the entity's state as left by the previous successful
	// operation in the batch. On success Handle returns the operation's
	// result and the entity's new state. If it returns an error, the returned
	// state is discarded and the entity keeps the state it had before the
	// operation.
	Handle(ctx context.Context, op Operation, state State) (interface{}, State, error)
}

// Func is an adaptor that allows an ordinary function to be used as an Entity.
type Func func(ctx context.Context, op Operation, state State) (interface{}, State, error)

// Handle calls fn(ctx, op, state).
func (fn Func) Handle(ctx context.Context, op Operation, state State) (interface{}, State, error) {
	return fn(ctx, op, state)
}

// Typed returns an Entity whose state is unmarshaled into a value of type S
// before fn is called, and whose new state is marshaled from fn's result.
//
// If the entity has no state, fn receives the zero-value of S.
func Typed[S any](fn func(context.Context, Operation, S) (interface{}, S, error)) Entity {
	return Func(func(ctx context.Context, op Operation, state State) (interface{}, State, error) {
		var s S
		if err := state.Get(&s); err != nil {
			return nil, state, err
		}

		result, next, err := fn(ctx, op, s)
		if err != nil {
			return nil, state, err
		}

		updated, err := state.Set(next)
		return result, updated, err
	})
}

// Operation is a single operation requested of an entity.
type Operation struct {
	Name     string
	EntityID workitem.EntityID

	data      []byte
	converter payload.Converter
}

// NewOperation returns an operation with the given serialized input.
func NewOperation(id workitem.EntityID, name string, data []byte, c payload.Converter) Operation {
	return Operation{
		Name:      name,
		EntityID:  id,
		data:      data,
		converter: c,
	}
}

// HasInput returns true if the operation was requested with an input.
func (op Operation) HasInput() bool {
	return len(op.data) != 0
}

// GetInput unmarshals the operation's input into v. v is left untouched if
// the operation has no input.
func (op Operation) GetInput(v interface{}) error {
	return payload.Unmarshal(converterOrDefault(op.converter), op.data, v)
}

// Registry resolves entities by name.
type Registry interface {
	Entity(name string) (Entity, bool)
}

func converterOrDefault(c payload.Converter) payload.Converter {
	if c == nil {
		return payload.DefaultConverter
	}
	return c
}
