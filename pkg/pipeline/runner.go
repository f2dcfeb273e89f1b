package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Runner executes the command of a step. A nonzero exit code is not an error: err is only set when
// the command could not run at all.
type Runner interface {
	Run(ctx context.Context, workDir string, cmd model.Command) (exitCode int, output []byte, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, workDir string, cmd model.Command) (int, []byte, error)

func (f RunnerFunc) Run(ctx context.Context, workDir string, cmd model.Command) (int, []byte, error) {
	return f(ctx, workDir, cmd)
}

// ExecRunner runs commands as child processes without a shell.
type ExecRunner struct {
	// WaitDelay bounds how long to wait for output pipes after the process was killed.
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, workDir string, cmd model.Command) (int, []byte, error) {
	proc := exec.CommandContext(ctx, cmd.Program, cmd.Args...) //nolint:gosec // commands come from the project configuration
	proc.Dir = workDir

	if cmd.Dir != "" {
		proc.Dir = cmd.Dir
		if !filepath.IsAbs(cmd.Dir) {
			proc.Dir = filepath.Join(workDir, cmd.Dir)
		}
	}

	proc.Env = os.Environ()

	keys := make([]string, 0, len(cmd.Env))
	for k := range cmd.Env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		proc.Env = append(proc.Env, k+"="+cmd.Env[k])
	}

	proc.WaitDelay = r.WaitDelay
	if proc.WaitDelay == 0 {
		proc.WaitDelay = time.Second
	}

	output, err := proc.CombinedOutput()
	if err == nil {
		return 0, output, nil
	}

	if ctx.Err() != nil {
		return -1, output, errors.Wrap(ctx.Err(), "command interrupted")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), output, nil
	}

	return -1, output, errors.Wrapf(err, "unable to run %s", cmd.Program)
}

var _ Runner = ExecRunner{}
