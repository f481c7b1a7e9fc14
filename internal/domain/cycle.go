package domain

import "time"

// CycleStats holds statistics about one polling cycle of one source.
type CycleStats struct {
	SourceID  string
	CycleID   string
	Fetched   int
	Malformed int
	New       int
	Baseline  int
	Persisted int
	Delivered int
	Failed    int
	Duration  time.Duration
}

// State is a step of the per-source polling state machine.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateDetecting   State = "detecting"
	StatePersisting  State = "persisting"
	StateDispatching State = "dispatching"
	StateCancelled   State = "cancelled"
)
