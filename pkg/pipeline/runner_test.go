package pipeline_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

func requireShell(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("sh not available: %v", err)
	}
}

func TestExecRunner(t *testing.T) {
	t.Parallel()
	requireShell(t)

	workDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(workDir, "packages"), 0o755))

	tcs := map[string]struct {
		cmd        model.Command
		wantCode   int
		wantOutput string
	}{
		"success": {
			cmd:        model.Command{Program: "sh", Args: []string{"-c", "echo built"}},
			wantOutput: "built\n",
		},
		"exit code": {
			cmd:        model.Command{Program: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}},
			wantCode:   3,
			wantOutput: "broken\n",
		},
		"environment": {
			cmd: model.Command{
				Program: "sh",
				Args:    []string{"-c", "echo $PKGPIPE_TEST_SUITE"},
				Env:     map[string]string{"PKGPIPE_TEST_SUITE": "conformance"},
			},
			wantOutput: "conformance\n",
		},
		"relative directory": {
			cmd:        model.Command{Program: "sh", Args: []string{"-c", "basename \"$(pwd -P)\""}, Dir: "packages"},
			wantOutput: "packages\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			code, output, err := pipeline.ExecRunner{}.Run(t.Context(), workDir, tc.cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantOutput, string(output))
		})
	}
}

func TestExecRunnerMissingProgram(t *testing.T) {
	t.Parallel()

	code, _, err := pipeline.ExecRunner{}.Run(t.Context(), t.TempDir(), model.Command{Program: "pkgpipe-no-such-program"})
	require.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestExecRunnerInterrupted(t *testing.T) {
	t.Parallel()
	requireShell(t)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, _, err := pipeline.ExecRunner{WaitDelay: 100 * time.Millisecond}.Run(ctx, t.TempDir(),
		model.Command{Program: "sh", Args: []string{"-c", "sleep 10"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
}
