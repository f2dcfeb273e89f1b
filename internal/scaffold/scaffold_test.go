package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cdn-client")
	data := NewData("@youwol/cdn-client")
	data.Description = "Dynamic installation of npm libraries."
	data.TestSuite = "https://github.com/youwol/integration-tests-conf"

	res, err := Generate(data, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultFileName, ".gitignore"}, res.Created)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Warnings)

	project, err := config.Load(filepath.Join(dir, config.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, "@youwol/cdn-client", project.Name)
	assert.Equal(t, "0.1.0", project.Version)
	assert.Equal(t, data.TestSuite, project.Test.Suite)
	assert.Equal(t, []string{"dist", "coverage"}, project.Publish.Artifacts)

	graph, _, err := config.Assemble(project, os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, 3, graph.Len())

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), DefaultManifestFile)
}

func TestGenerateIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := NewData("pkg")

	_, err := Generate(data, dir)
	require.NoError(t, err)

	custom := []byte("node_modules/\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), custom, 0o600))

	res, err := Generate(data, dir)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{config.DefaultFileName}, res.Unchanged)
	assert.Equal(t, []string{".gitignore"}, res.Skipped)

	got, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestGenerateWarnsOnInvalidName(t *testing.T) {
	t.Parallel()

	res, err := Generate(NewData("Not A Package"), t.TempDir())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "/name")
}

func TestGenerateRejectsVersion(t *testing.T) {
	t.Parallel()

	data := NewData("pkg")
	data.Version = "next"

	dir := filepath.Join(t.TempDir(), "pkg")
	_, err := Generate(data, dir)
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
