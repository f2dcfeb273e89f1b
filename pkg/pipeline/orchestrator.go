package pipeline

import (
	"container/heap"
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Orchestrator executes pipeline graphs. It keeps no state between runs.
type Orchestrator struct {
	registry   *ArtifactRegistry
	runner     Runner
	projectDir string
	workers    int
	logger     *slog.Logger
	hooks      []model.PipelineOption
}

// NewOrchestrator creates an orchestrator resolving artifacts with registry.
func NewOrchestrator(registry *ArtifactRegistry, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrRegistryMustBeSet
	}

	orc := &Orchestrator{
		registry: registry,
		runner:   ExecRunner{},
		workers:  runtime.NumCPU(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(orc)
	}

	if orc.workers < 1 {
		orc.workers = 1
	}

	return orc, nil
}

type completion struct {
	id       string
	exitCode int
	output   []byte
	err      error
	finished time.Time
}

// run is the state of one execution of a graph. It is only touched by the coordinating goroutine.
type run struct {
	graph    *Graph
	result   *RunResult
	position map[string]int
	unmet    map[string]int
	ready    *indexHeap
	running  int
	hookErr  error
}

// Run executes the graph. Steps run as soon as all their dependencies succeeded, up to the worker limit.
// A failed step has all its dependents skipped while independent steps keep running. When ctx is
// canceled, running commands are left to finish and every pending step is skipped.
//
// The returned RunResult is never nil once the hooks are prepared. The error is a *RunFailedError
// when a step did not succeed, or the manifest error when artifacts could not be located.
func (o *Orchestrator) Run(ctx context.Context, graph *Graph) (*RunResult, error) {
	if graph == nil {
		return nil, ErrGraphMustBeSet
	}

	startTime := time.Now()

	err := o.prepare(graph)
	if err != nil {
		return nil, err
	}

	state := &run{
		graph:    graph,
		result:   newRunResult(graph.order),
		position: make(map[string]int, graph.Len()),
		unmet:    make(map[string]int, graph.Len()),
		ready:    &indexHeap{},
	}

	for pos, id := range graph.order {
		state.position[id] = pos
		state.unmet[id] = len(uniqueDeps(graph, id))

		if state.unmet[id] == 0 {
			heap.Push(state.ready, pos)
		}
	}

	completions := make(chan completion, graph.Len())
	workers := errgroup.Group{}
	workers.SetLimit(o.workers)

	done := ctx.Done()
	canceled := false

	o.logger.Info("starting pipeline run", "steps", graph.Len(), "workers", o.workers)

	for {
		for !canceled && state.ready.Len() > 0 && state.running < o.workers {
			if ctx.Err() != nil {
				break
			}

			id := graph.order[heap.Pop(state.ready).(int)] //nolint:forcetypeassert // the heap only holds ints
			step, _ := graph.Step(id)

			o.start(state, step)

			workers.Go(func() error {
				completions <- o.execute(ctx, step)

				return nil
			})
		}

		if state.running == 0 && (canceled || state.ready.Len() == 0) {
			break
		}

		select {
		case c := <-completions:
			o.settle(state, c)
		case <-done:
			canceled = true
			done = nil

			o.logger.Warn("pipeline run canceled, waiting for running steps", "running", state.running)
			o.skipPending(state, "run canceled")
		}
	}

	_ = workers.Wait()

	return o.conclude(ctx, state, canceled, time.Since(startTime))
}

func (o *Orchestrator) prepare(graph *Graph) error {
	for _, hook := range o.hooks {
		err := hook.New()
		if err != nil {
			return errors.Wrap(err, "unable to initialise pipeline option")
		}

		for _, step := range graph.Steps() {
			err := hook.PrepareStep(step)
			if err != nil {
				return errors.Wrapf(err, "unable to prepare step %s", step.ID)
			}
		}
	}

	return nil
}

func uniqueDeps(graph *Graph, id string) []string {
	step, _ := graph.Step(id)
	seen := make(map[string]struct{}, len(step.DependsOn))
	res := []string{}

	for _, dep := range step.DependsOn {
		if _, ok := seen[dep]; ok {
			continue
		}

		seen[dep] = struct{}{}
		res = append(res, dep)
	}

	return res
}

func (o *Orchestrator) start(state *run, step *model.StepInfo) {
	startedAt := time.Now()

	err := state.result.transition(step.ID, model.StatusRunning, func(res *model.StepResult) {
		res.Started = startedAt
	})
	if err != nil {
		// the coordinator owns every transition, a failure here is a bug.
		panic(err)
	}

	state.running++

	o.logger.Debug("step started", "step", step.ID, "command", step.Command.String())
	o.callHooks(state, func(hook model.PipelineOption) error {
		return hook.OnStepStart(step, startedAt)
	})
}

// execute runs the command of a step on a worker. Commands are detached from the cancellation of ctx so
// that a canceled run lets them finish.
func (o *Orchestrator) execute(ctx context.Context, step *model.StepInfo) completion {
	res := completion{id: step.ID}

	if step.Command.IsZero() {
		res.finished = time.Now()

		return res
	}

	stepCtx := context.WithoutCancel(ctx)

	if step.Timeout > 0 {
		var cancel context.CancelFunc

		stepCtx, cancel = context.WithTimeout(stepCtx, step.Timeout)
		defer cancel()
	}

	res.exitCode, res.output, res.err = o.runner.Run(stepCtx, o.projectDir, step.Command)
	res.finished = time.Now()

	switch {
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		res.err = &StepTimeoutError{Step: step.ID, Timeout: step.Timeout, Output: res.output}
	case res.err != nil:
		res.err = &StepFailedError{Step: step.ID, ExitCode: res.exitCode, Output: res.output, Cause: res.err}
	case res.exitCode != 0:
		res.err = &StepFailedError{Step: step.ID, ExitCode: res.exitCode, Output: res.output}
	}

	return res
}

func (o *Orchestrator) settle(state *run, c completion) {
	state.running--

	status := model.StatusSucceeded
	if c.err != nil {
		status = model.StatusFailed
	}

	err := state.result.transition(c.id, status, func(res *model.StepResult) {
		res.ExitCode = c.exitCode
		res.Output = c.output
		res.Err = c.err
		res.Finished = c.finished
	})
	if err != nil {
		panic(err)
	}

	o.finishHooks(state, c.id)

	if status == model.StatusFailed {
		o.logger.Error("step failed", "step", c.id, "exit_code", c.exitCode, "error", c.err)
		o.skipDescendants(state, c.id)

		return
	}

	res, _ := state.result.Step(c.id)
	o.logger.Info("step succeeded", "step", c.id, "duration", res.Duration())

	for _, next := range state.graph.Dependents(c.id) {
		state.unmet[next]--
		if state.unmet[next] == 0 && state.result.Status(next) == model.StatusPending {
			heap.Push(state.ready, state.position[next])
		}
	}
}

func (o *Orchestrator) skipDescendants(state *run, failed string) {
	for _, id := range state.graph.Descendants(failed) {
		o.skip(state, id, "dependency "+failed+" failed")
	}
}

func (o *Orchestrator) skipPending(state *run, reason string) {
	for _, id := range state.result.WithStatus(model.StatusPending) {
		o.skip(state, id, reason)
	}

	*state.ready = (*state.ready)[:0]
}

func (o *Orchestrator) skip(state *run, id, reason string) {
	if state.result.Status(id) != model.StatusPending {
		return
	}

	err := state.result.transition(id, model.StatusSkipped, func(res *model.StepResult) {
		res.Err = errors.Errorf("skipped: %s", reason)
	})
	if err != nil {
		panic(err)
	}

	o.logger.Warn("step skipped", "step", id, "reason", reason)
	o.finishHooks(state, id)
}

func (o *Orchestrator) finishHooks(state *run, id string) {
	step, _ := state.graph.Step(id)
	res, _ := state.result.Step(id)

	o.callHooks(state, func(hook model.PipelineOption) error {
		return hook.OnStepFinish(step, res)
	})
}

func (o *Orchestrator) callHooks(state *run, fn func(hook model.PipelineOption) error) {
	for _, hook := range o.hooks {
		err := fn(hook)
		if err != nil && state.hookErr == nil {
			state.hookErr = errors.Wrap(err, "pipeline option failed")
		}
	}
}

func (o *Orchestrator) conclude(ctx context.Context, state *run, canceled bool, elapsed time.Duration) (*RunResult, error) {
	manifest, produced, manifestErr := assembleManifest(state.graph, o.registry, state.result)
	for id, arts := range produced {
		state.result.setProduced(id, arts)
	}

	state.result.finish(manifest, manifestErr, canceled, elapsed)

	o.callHooks(state, func(hook model.PipelineOption) error {
		return hook.Finish(elapsed)
	})

	runErr := summarize(state.graph, state.result, canceled)

	switch {
	case runErr != nil:
		o.logger.ErrorContext(ctx, "pipeline run failed", "elapsed", elapsed, "error", runErr)

		return state.result, runErr
	case manifestErr != nil:
		o.logger.ErrorContext(ctx, "unable to assemble manifest", "error", manifestErr)

		return state.result, errors.Wrap(manifestErr, "unable to assemble manifest")
	case state.hookErr != nil:
		return state.result, state.hookErr
	}

	o.logger.InfoContext(ctx, "pipeline run succeeded", "elapsed", elapsed, "artifacts", manifest.Len())

	return state.result, nil
}

// summarize returns nil when every step succeeded. Otherwise it reports the first failing step of each
// independent branch of the graph.
func summarize(graph *Graph, res *RunResult, canceled bool) error {
	skipped := res.WithStatus(model.StatusSkipped)
	failures := []Failure{}

	for _, component := range graph.components() {
		for _, id := range component {
			step, _ := res.Step(id)
			if step.Status == model.StatusFailed {
				failures = append(failures, Failure{Step: id, Err: step.Err})

				break
			}
		}
	}

	if len(failures) == 0 && len(skipped) == 0 && !canceled {
		return nil
	}

	return &RunFailedError{Failures: failures, Skipped: skipped, Canceled: canceled}
}
