// Package taskhub implements the bidirectional gRPC stream over which an
// orchestration engine delivers work items to a worker and receives their
// completions.
//
// The worker opens the stream and sends a "hello" frame that names the task
// hub it serves. The engine replies with a "ready" frame, after which it may
// send work items and health pings at any time, and the worker may send
// completions at any time.
package taskhub
