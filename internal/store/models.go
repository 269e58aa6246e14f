package store

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
)

// Run is one started interval session.
type Run struct {
	ID              int64
	RunID           string
	WorkSeconds     int
	RestSeconds     int
	TotalRounds     int
	WarmupSeconds   int
	RoundsCompleted int
	Status          string // running, completed, cancelled
	StartedAt       time.Time
	EndedAt         *time.Time
}

// WorkDone is the number of work seconds the run actually covered.
func (r Run) WorkDone() int64 {
	return int64(r.WorkSeconds) * int64(r.RoundsCompleted)
}

type Setting struct {
	Key   string
	Value string
}

// RunFilter is used to filter runs in queries.
type RunFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// DailyWork aggregates runs per day.
type DailyWork struct {
	Date        string
	Runs        int
	Completed   int
	WorkSeconds int64
}
