package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

type DefaultMetric struct {
	mu       *sync.Mutex
	queued   time.Time
	started  time.Time
	finished time.Time
	status   model.Status
}

func (mt *DefaultMetric) SetQueued(at time.Time) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.queued = at
}

func (mt *DefaultMetric) SetStarted(at time.Time) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.started = at
	mt.status = model.StatusRunning
}

func (mt *DefaultMetric) SetFinished(at time.Time, status model.Status) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.finished = at
	mt.status = status
}

func (mt *DefaultMetric) WaitDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.queued.IsZero() || mt.started.IsZero() {
		return 0
	}

	return Round(mt.started.Sub(mt.queued))
}

func (mt *DefaultMetric) Duration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.started.IsZero() || mt.finished.IsZero() {
		return 0
	}

	return Round(mt.finished.Sub(mt.started))
}

func (mt *DefaultMetric) Status() model.Status {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.status
}

// Round drops the precision of a duration that is not meaningful for a human.
func Round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Minute:
		d = d.Round(time.Second)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
