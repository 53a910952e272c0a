package models

import "time"

// RunResult summarizes one forwarding pass for the caller or scheduler.
// LastError holds the most recent failure, whether it skipped a message or
// aborted the run; Aborted tells the two apart.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Candidates int
	Forwarded  int
	Skipped    int
	Aborted    bool
	LastError  error
}
