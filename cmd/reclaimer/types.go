package main

import "time"

// SweepReport summarizes one reclaim run; it is logged and returned to the
// Lambda runtime for the invocation record.
type SweepReport struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Reclaimed int       `json:"reclaimed"`
}
