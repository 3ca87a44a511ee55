// Package orchestration executes orchestrator work items by delegating to a
// replay engine.
package orchestration

import (
	"context"

	"github.com/dogmatiq/durabletask/workitem"
)

// Engine replays orchestrations.
//
// Given an orchestration's full history, the engine re-runs the orchestrator
// function deterministically and returns the actions it requested in
// response to the new events.
type Engine interface {
	Replay(ctx context.Context, req Request) ([]workitem.Action, error)
}

// EngineFunc is an adaptor that allows an ordinary function to be used as an
// Engine.
type EngineFunc func(ctx context.Context, req Request) ([]workitem.Action, error)

// Replay calls fn(ctx, req).
func (fn EngineFunc) Replay(ctx context.Context, req Request) ([]workitem.Action, error) {
	return fn(ctx, req)
}

// Request is a request to replay a single orchestration instance.
type Request struct {
	Name       string
	InstanceID string

	// PastEvents is the history that has already been processed by previous
	// replays, in the order assigned by the engine.
	PastEvents []workitem.HistoryEvent

	// NewEvents is the history that has not yet been processed, in the order
	// assigned by the engine.
	NewEvents []workitem.HistoryEvent
}
