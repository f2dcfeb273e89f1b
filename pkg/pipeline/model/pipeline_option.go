package model

import "time"

// PipelineOption defines the interface for hooks attached to a run.
// Every method is called from the goroutine coordinating the run, never concurrently.
type PipelineOption interface {
	// New initialises the pipeline option at the beginning of a run.
	New() error
	// PrepareStep runs once per step, in execution order, before any step starts.
	PrepareStep(step *StepInfo) error
	// OnStepStart runs when the step moves to running.
	OnStepStart(step *StepInfo, startedAt time.Time) error
	// OnStepFinish runs when the step reaches a terminal status.
	OnStepFinish(step *StepInfo, result *StepResult) error
	// Finish runs after every step settled.
	Finish(elapsed time.Duration) error
}
