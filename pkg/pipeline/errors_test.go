package pipeline_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  error
		want int
	}{
		"success":            {err: nil, want: pipeline.ExitOK},
		"cycle":              {err: &pipeline.CyclicDependencyError{Cycle: []string{"a", "b", "a"}}, want: pipeline.ExitConfiguration},
		"wrapped dangling":   {err: errors.Wrap(&pipeline.DanglingDependencyError{Step: "a", Dependency: "b"}, "load"), want: pipeline.ExitConfiguration},
		"duplicate artifact": {err: &pipeline.DuplicateArtifactError{ID: "dist"}, want: pipeline.ExitConfiguration},
		"configuration":      {err: errors.Wrap(pipeline.ErrConfiguration, "bad version"), want: pipeline.ExitConfiguration},
		"run failed": {
			err:  &pipeline.RunFailedError{Failures: []pipeline.Failure{{Step: "test", Err: &pipeline.StepFailedError{Step: "test", ExitCode: 1}}}},
			want: pipeline.ExitFailed,
		},
		"manifest":  {err: &pipeline.UnknownArtifactError{ID: "dist"}, want: pipeline.ExitFailed},
		"anonymous": {err: errors.New("boom"), want: pipeline.ExitFailed},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, pipeline.ExitCode(tc.err))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	timeout := &pipeline.StepTimeoutError{Step: "test", Timeout: time.Second}
	assert.ErrorIs(t, timeout, pipeline.ErrExecution)
	assert.NotErrorIs(t, timeout, pipeline.ErrConfiguration)

	unknown := &pipeline.UnknownStepError{ID: "deploy"}
	assert.ErrorIs(t, unknown, pipeline.ErrConfiguration)
	assert.NotErrorIs(t, unknown, pipeline.ErrExecution)
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  error
		want string
	}{
		"cycle": {
			err:  &pipeline.CyclicDependencyError{Cycle: []string{"a", "c", "b", "a"}},
			want: "dependency cycle: a -> c -> b -> a",
		},
		"step failed": {
			err:  &pipeline.StepFailedError{Step: "test", ExitCode: 3},
			want: `step "test" failed with exit code 3`,
		},
		"step failed to start": {
			err:  &pipeline.StepFailedError{Step: "test", ExitCode: -1, Cause: errors.New("not found")},
			want: `step "test" failed: not found`,
		},
		"timeout": {
			err:  &pipeline.StepTimeoutError{Step: "test", Timeout: 2 * time.Second},
			want: `step "test" timed out after 2s`,
		},
		"unknown artifact with reason": {
			err:  &pipeline.UnknownArtifactError{ID: "docs", Reason: "no file matches its selection"},
			want: `unknown artifact "docs": no file matches its selection`,
		},
		"run failed": {
			err: &pipeline.RunFailedError{
				Failures: []pipeline.Failure{
					{Step: "lint", Err: &pipeline.StepFailedError{Step: "lint", ExitCode: 1}},
					{Step: "test", Err: &pipeline.StepTimeoutError{Step: "test", Timeout: time.Minute}},
				},
				Skipped: []string{"publish"},
			},
			want: `pipeline run failed (1 skipped): step "lint" failed with exit code 1; step "test" timed out after 1m0s`,
		},
		"run canceled": {
			err:  &pipeline.RunFailedError{Skipped: []string{"test", "publish"}, Canceled: true},
			want: "pipeline run failed (2 skipped): run canceled",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.EqualError(t, tc.err, tc.want)
		})
	}
}
