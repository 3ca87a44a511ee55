package workitem

import "time"

// HistoryEvent is an event in an orchestration instance's history.
//
// The worker treats history events as opaque; they are interpreted only by the
// replay engine.
type HistoryEvent struct {
	ID        int64
	Type      string
	Timestamp time.Time
	Data      []byte
}

// Action is an action produced by an orchestrator, such as scheduling an
// activity or completing the orchestration.
type Action struct {
	ID   int64
	Type string
	Data []byte
}
