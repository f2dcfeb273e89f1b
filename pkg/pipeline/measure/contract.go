package measure

import (
	"time"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Measure collects one Metric per step of a run.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) (Metric, bool)
	AllMetrics() map[string]Metric
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
}

// Metric holds the timings of one step.
type Metric interface {
	// SetQueued records when the run started waiting for the step.
	SetQueued(at time.Time)
	SetStarted(at time.Time)
	SetFinished(at time.Time, status model.Status)
	// WaitDuration is the time spent between the start of the run and the start of the step.
	WaitDuration() time.Duration
	Duration() time.Duration
	Status() model.Status
}
