package pipeline

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// RunResult holds the outcome of every step of a run. It is written by the orchestrator only and is
// read-only once Run returns. Readers get copies.
type RunResult struct {
	mu          sync.RWMutex
	order       []string
	steps       map[string]*model.StepResult
	manifest    *Manifest
	manifestErr error
	canceled    bool
	elapsed     time.Duration
}

func newRunResult(order []string) *RunResult {
	res := &RunResult{
		order: append([]string(nil), order...),
		steps: make(map[string]*model.StepResult, len(order)),
	}

	for _, id := range order {
		res.steps[id] = &model.StepResult{ID: id, Status: model.StatusPending}
	}

	return res
}

// transition moves a step to a new status and applies update to its record in the same critical section.
func (r *RunResult) transition(id string, to model.Status, update func(res *model.StepResult)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.steps[id]
	if !ok {
		return errors.Wrapf(ErrInvalidTransition, "unknown step %q", id)
	}

	if !model.CanTransition(res.Status, to) {
		return errors.Wrapf(ErrInvalidTransition, "step %q: %s -> %s", id, res.Status, to)
	}

	res.Status = to
	if update != nil {
		update(res)
	}

	return nil
}

func (r *RunResult) setProduced(id string, produced []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps[id].Produced = produced
}

func (r *RunResult) finish(manifest *Manifest, manifestErr error, canceled bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.manifest = manifest
	r.manifestErr = manifestErr
	r.canceled = canceled
	r.elapsed = elapsed
}

// Status returns the current status of a step.
func (r *RunResult) Status(id string) model.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.steps[id]
	if !ok {
		return model.StatusPending
	}

	return res.Status
}

// Step returns a copy of the result of a step.
func (r *RunResult) Step(id string) (*model.StepResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.steps[id]
	if !ok {
		return nil, false
	}

	return res.Clone(), true
}

// Steps returns copies of every step result, in execution order.
func (r *RunResult) Steps() []*model.StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.StepResult, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.steps[id].Clone())
	}

	return res
}

// WithStatus returns the steps in one of the given statuses, in execution order.
func (r *RunResult) WithStatus(statuses ...model.Status) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := []string{}

	for _, id := range r.order {
		for _, st := range statuses {
			if r.steps[id].Status == st {
				res = append(res, id)

				break
			}
		}
	}

	return res
}

// Durations returns how long each step ran.
func (r *RunResult) Durations() map[string]time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[string]time.Duration, len(r.steps))
	for id, step := range r.steps {
		res[id] = step.Duration()
	}

	return res
}

// Manifest returns the publish manifest, nil if it could not be assembled.
func (r *RunResult) Manifest() *Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.manifest
}

// ManifestErr returns the error met while assembling the manifest.
func (r *RunResult) ManifestErr() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.manifestErr
}

// Canceled reports whether the run was canceled by the caller.
func (r *RunResult) Canceled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.canceled
}

// Elapsed returns the duration of the run.
func (r *RunResult) Elapsed() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.elapsed
}

// Succeeded reports whether every step succeeded and the manifest was assembled.
func (r *RunResult) Succeeded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, step := range r.steps {
		if step.Status != model.StatusSucceeded {
			return false
		}
	}

	return r.manifestErr == nil
}
