// Package workitem defines the units of work exchanged between an orchestration
// engine and a worker, and the completions the worker returns.
package workitem
