package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

type behaviour func(ctx context.Context) (int, []byte, error)

func succeed(output string) behaviour {
	return func(context.Context) (int, []byte, error) {
		return 0, []byte(output), nil
	}
}

func exit(code int, output string) behaviour {
	return func(context.Context) (int, []byte, error) {
		return code, []byte(output), nil
	}
}

// fakeRunner runs the behaviour registered for the program of a command and records when each program
// starts and ends.
type fakeRunner struct {
	mu         sync.Mutex
	behaviours map[string]behaviour
	events     []string
}

func newFakeRunner(behaviours map[string]behaviour) *fakeRunner {
	return &fakeRunner{behaviours: behaviours}
}

func (f *fakeRunner) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, event)
}

func (f *fakeRunner) Run(ctx context.Context, _ string, cmd model.Command) (int, []byte, error) {
	f.record("start:" + cmd.Program)
	defer f.record("end:" + cmd.Program)

	fn, ok := f.behaviours[cmd.Program]
	if !ok {
		return 0, nil, nil
	}

	return fn(ctx)
}

func (f *fakeRunner) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.events...)
}

func (f *fakeRunner) index(t *testing.T, event string) int {
	t.Helper()

	idx := slices.Index(f.Events(), event)
	require.NotEqual(t, -1, idx, "event %s not recorded", event)

	return idx
}

func (f *fakeRunner) ran(program string) bool {
	return slices.Contains(f.Events(), "start:"+program)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOrchestrator(t *testing.T, registry *pipeline.ArtifactRegistry, runner pipeline.Runner, opts ...pipeline.Option) *pipeline.Orchestrator {
	t.Helper()

	if registry == nil {
		registry = pipeline.NewArtifactRegistry(projectTree())
	}

	opts = append([]pipeline.Option{pipeline.WithRunner(runner), pipeline.WithLogger(discardLogger())}, opts...)

	orc, err := pipeline.NewOrchestrator(registry, opts...)
	require.NoError(t, err)

	return orc
}

func register(t *testing.T, registry *pipeline.ArtifactRegistry, id string, include ...string) {
	t.Helper()

	_, err := registry.Register(id, model.Selection{Include: include})
	require.NoError(t, err)
}
