package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration classifies every error detected before a run starts.
	ErrConfiguration = errors.New("invalid pipeline configuration")
	// ErrExecution classifies every error reported for a single step.
	ErrExecution = errors.New("step execution failed")

	ErrGraphMustBeSet    = errors.New("graph must be set")
	ErrRegistryMustBeSet = errors.New("artifact registry must be set")
	ErrInvalidTransition = errors.New("invalid step transition")
)

// Exit codes of a run.
const (
	ExitOK            = 0
	ExitFailed        = 1
	ExitConfiguration = 2
)

// ExitCode maps an error returned by the package to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	default:
		return ExitFailed
	}
}

type configurationError struct{}

func (configurationError) Is(target error) bool { return target == ErrConfiguration }

type executionError struct{}

func (executionError) Is(target error) bool { return target == ErrExecution }

// DuplicateArtifactError is returned when an artifact identifier is registered twice.
type DuplicateArtifactError struct {
	configurationError
	ID string
}

func (e *DuplicateArtifactError) Error() string {
	return fmt.Sprintf("artifact %q already registered", e.ID)
}

// InvalidPatternError is returned when a file selection pattern cannot be parsed.
type InvalidPatternError struct {
	configurationError
	Artifact string
	Pattern  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("artifact %q: invalid pattern %q", e.Artifact, e.Pattern)
}

// DuplicateStepError is returned when a step identifier is declared twice.
type DuplicateStepError struct {
	configurationError
	ID string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("step %q already declared", e.ID)
}

// UnknownStepError is returned when an override targets a step that was never declared.
type UnknownStepError struct {
	configurationError
	ID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.ID)
}

// DanglingDependencyError is returned when a step depends on a step that does not exist.
type DanglingDependencyError struct {
	configurationError
	Step       string
	Dependency string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("step %q depends on undeclared step %q", e.Step, e.Dependency)
}

// CyclicDependencyError is returned when the dependencies form a cycle.
// Cycle starts and ends with the same step, following dependency order.
type CyclicDependencyError struct {
	configurationError
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "dependency cycle: " + strings.Join(e.Cycle, " -> ")
}

// ConflictingProducerError is returned when two steps declare the same artifact.
type ConflictingProducerError struct {
	configurationError
	Artifact string
	Steps    [2]string
}

func (e *ConflictingProducerError) Error() string {
	return fmt.Sprintf("artifact %q is produced by both %q and %q", e.Artifact, e.Steps[0], e.Steps[1])
}

// StepFailedError is reported for a step whose command did not succeed.
type StepFailedError struct {
	executionError
	Step     string
	ExitCode int
	Output   []byte
	Cause    error
}

func (e *StepFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("step %q failed: %v", e.Step, e.Cause)
	}

	return fmt.Sprintf("step %q failed with exit code %d", e.Step, e.ExitCode)
}

func (e *StepFailedError) Unwrap() error { return e.Cause }

// StepTimeoutError is reported for a step that exceeded its time budget.
type StepTimeoutError struct {
	executionError
	Step    string
	Timeout time.Duration
	Output  []byte
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %q timed out after %s", e.Step, e.Timeout)
}

// UnknownArtifactError is returned when an artifact is not registered, or when a succeeded step's
// artifact cannot be located on disk while assembling the manifest.
type UnknownArtifactError struct {
	ID     string
	Reason string
}

func (e *UnknownArtifactError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unknown artifact %q", e.ID)
	}

	return fmt.Sprintf("unknown artifact %q: %s", e.ID, e.Reason)
}

// Failure is the first failing step of an independent branch of the graph.
type Failure struct {
	Step string
	Err  error
}

// RunFailedError summarises a run in which at least one step did not succeed.
type RunFailedError struct {
	Failures []Failure
	Skipped  []string
	Canceled bool
}

func (e *RunFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures)+1)
	for _, f := range e.Failures {
		parts = append(parts, f.Err.Error())
	}

	if e.Canceled {
		parts = append(parts, "run canceled")
	}

	msg := "pipeline run failed"
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(" (%d skipped)", len(e.Skipped))
	}

	if len(parts) == 0 {
		return msg
	}

	return msg + ": " + strings.Join(parts, "; ")
}

func (e *RunFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}
