package pipeline

import (
	"log/slog"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Option configures an Orchestrator.
type Option func(o *Orchestrator)

// WithRunner sets how commands are executed. Defaults to ExecRunner.
func WithRunner(runner Runner) Option {
	return func(o *Orchestrator) {
		o.runner = runner
	}
}

// WithProjectDir sets the working directory of every command.
func WithProjectDir(dir string) Option {
	return func(o *Orchestrator) {
		o.projectDir = dir
	}
}

// WithWorkers sets how many steps may run at the same time.
func WithWorkers(workers int) Option {
	return func(o *Orchestrator) {
		o.workers = workers
	}
}

// WithLogger sets the logger of the run. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithHooks attaches pipeline options, like a measure or a drawer, to every run.
func WithHooks(hooks ...model.PipelineOption) Option {
	return func(o *Orchestrator) {
		o.hooks = append(o.hooks, hooks...)
	}
}
