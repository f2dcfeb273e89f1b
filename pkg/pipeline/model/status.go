package model

import (
	"fmt"
	"time"
)

// Status is the state of a step within a run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusRunning:   "running",
	StatusSucceeded: "succeeded",
	StatusFailed:    "failed",
	StatusSkipped:   "skipped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusSkipped
	case StatusRunning:
		return to == StatusSucceeded || to == StatusFailed
	default:
		return false
	}
}

// StepResult is the outcome of one step.
type StepResult struct {
	ID       string
	Status   Status
	ExitCode int
	Output   []byte
	// Produced lists the declared artifacts that were found once the step succeeded.
	Produced []string
	Err      error
	Started  time.Time
	Finished time.Time
}

// Duration returns how long the step ran. It is zero for steps that never ran.
func (r *StepResult) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}

	return r.Finished.Sub(r.Started)
}

// Clone returns a copy safe to hand out to readers.
func (r *StepResult) Clone() *StepResult {
	cp := *r
	cp.Output = append([]byte(nil), r.Output...)
	cp.Produced = append([]string(nil), r.Produced...)

	return &cp
}
