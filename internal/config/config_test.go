package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/pkg/pipeline"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

const fullDocument = `
name: "@youwol/cdn-client"
version: 0.1.5-wip
type: library
description: Dynamic installation of npm libraries.
bundle:
  entries: [src/index.ts]
  modules:
    - name: workers
      entry: src/workers.ts
      dependsOn: [rxjs]
  externals:
    rxjs: ^7.5.6
    semver: ^7.3.4
  includedInBundle: [semver]
  devDependencies:
    typescript: ^5.0.0
  command: {program: npx, args: [webpack, --mode, production]}
  produces: [dist]
test:
  suite: https://github.com/youwol/integration-tests-conf
  command: {program: npx, args: [jest], env: {CI: "true"}}
  produces: [coverage]
publish:
  command: {program: npm, args: [pack]}
  artifacts: [dist, docs, coverage]
artifacts:
  - id: dist
    include: ["dist/**"]
    exclude: ["**/*.map"]
    links:
      - {name: bundle-analysis, url: dist/bundle-analysis.html}
  - id: coverage
    include: ["coverage/**"]
  - id: docs
    include: ["dist/docs/**"]
steps:
  - id: doc
    command: {program: npx, args: [typedoc]}
    produces: [docs]
    dependsOn: [build]
    timeout: 2m
overrides:
  - step: test
    command: {program: npx, args: [jest, --ci]}
workers: 4
timeout: 10m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse(t *testing.T) {
	t.Parallel()

	project, err := config.Parse([]byte(fullDocument))
	require.NoError(t, err)

	want := &config.Project{
		Name:        "@youwol/cdn-client",
		Version:     "0.1.5-wip",
		Type:        config.TypeLibrary,
		Description: "Dynamic installation of npm libraries.",
		Bundle: config.Bundle{
			Entries:          []string{"src/index.ts"},
			Modules:          []config.Module{{Name: "workers", Entry: "src/workers.ts", DependsOn: []string{"rxjs"}}},
			Externals:        map[string]string{"rxjs": "^7.5.6", "semver": "^7.3.4"},
			IncludedInBundle: []string{"semver"},
			DevDependencies:  map[string]string{"typescript": "^5.0.0"},
			Command:          model.Command{Program: "npx", Args: []string{"webpack", "--mode", "production"}},
			Produces:         []string{"dist"},
		},
		Test: config.Test{
			Suite:    "https://github.com/youwol/integration-tests-conf",
			Command:  model.Command{Program: "npx", Args: []string{"jest"}, Env: map[string]string{"CI": "true"}},
			Produces: []string{"coverage"},
		},
		Publish: config.Publish{
			Command:   model.Command{Program: "npm", Args: []string{"pack"}},
			Artifacts: []string{"dist", "docs", "coverage"},
		},
		Artifacts: []config.Artifact{
			{
				ID:      "dist",
				Include: []string{"dist/**"},
				Exclude: []string{"**/*.map"},
				Links:   []model.Link{{Name: "bundle-analysis", URL: "dist/bundle-analysis.html"}},
			},
			{ID: "coverage", Include: []string{"coverage/**"}},
			{ID: "docs", Include: []string{"dist/docs/**"}},
		},
		Steps: []config.Step{{
			ID:        "doc",
			Command:   model.Command{Program: "npx", Args: []string{"typedoc"}},
			Produces:  []string{"docs"},
			DependsOn: []string{model.BuildStep},
			Timeout:   2 * time.Minute,
		}},
		Overrides: []config.Override{{
			Step:    model.TestStep,
			Command: model.Command{Program: "npx", Args: []string{"jest", "--ci"}},
		}},
		Workers: 4,
		Timeout: 10 * time.Minute,
	}

	if diff := cmp.Diff(want, project); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"rxjs"}, project.Bundle.RuntimeExternals())
}

func TestParseDefaultsToLibrary(t *testing.T) {
	t.Parallel()

	project, err := config.Parse([]byte("name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js]}\n"))
	require.NoError(t, err)
	assert.Equal(t, config.TypeLibrary, project.Type)
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	const base = "name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js]}\n"

	tcs := map[string]struct {
		doc         string
		wantPath    string
		wantKeyword string
	}{
		"empty document": {
			doc: "",
		},
		"missing name": {
			doc:         "version: 1.0.0\nbundle: {entries: [index.js]}\n",
			wantKeyword: "required",
		},
		"bad package name": {
			doc:         "name: My Package\nversion: 1.0.0\nbundle: {entries: [index.js]}\n",
			wantPath:    "/name",
			wantKeyword: "pattern",
		},
		"unknown type": {
			doc:         base + "type: plugin\n",
			wantPath:    "/type",
			wantKeyword: "enum",
		},
		"unknown field": {
			doc:         base + "deploy: true\n",
			wantKeyword: "additionalProperties",
		},
		"bad duration": {
			doc:         base + "timeout: soon\n",
			wantPath:    "/timeout",
			wantKeyword: "pattern",
		},
		"command without program": {
			doc:         base + "test: {command: {args: [jest]}}\n",
			wantPath:    "/test/command",
			wantKeyword: "required",
		},
		"no workers": {
			doc:         base + "workers: 0\n",
			wantPath:    "/workers",
			wantKeyword: "minimum",
		},
		"not a semantic version": {
			doc:      "name: pkg\nversion: latest\nbundle: {entries: [index.js]}\n",
			wantPath: "/version",
		},
		"bad range": {
			doc:      "name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js], externals: {rxjs: '^^7'}}\n",
			wantPath: "/bundle/externals/rxjs",
		},
		"bundled external not declared": {
			doc:      "name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js], includedInBundle: [lodash]}\n",
			wantPath: "/bundle/includedInBundle/0",
		},
		"module depending on unknown package": {
			doc: "name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js], externals: {rxjs: ^7.0.0}, " +
				"modules: [{name: workers, entry: w.js, dependsOn: [rxjs, lodash]}]}\n",
			wantPath: "/bundle/modules/0/dependsOn/1",
		},
		"module depending on itself": {
			doc:      "name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js], modules: [{name: workers, entry: w.js, dependsOn: [workers]}]}\n",
			wantPath: "/bundle/modules/0/dependsOn/0",
		},
		"publish unknown artifact": {
			doc:      base + "publish: {artifacts: [dist]}\n",
			wantPath: "/publish/artifacts/0",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(tc.doc))
			require.ErrorIs(t, err, pipeline.ErrConfiguration)
			assert.Equal(t, pipeline.ExitConfiguration, pipeline.ExitCode(err))

			var validationErr *config.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.NotEmpty(t, validationErr.Issues)

			found := false

			for _, issue := range validationErr.Issues {
				if issue.Path == tc.wantPath && issue.Keyword == tc.wantKeyword {
					found = true
				}
			}

			assert.True(t, found, "no issue at %q with keyword %q in %v", tc.wantPath, tc.wantKeyword, validationErr.Issues)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("name: [unterminated\n"))
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, fullDocument)

	project, err := config.NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), project.Dir)
	assert.Equal(t, 4, project.Workers)
	assert.Equal(t, 10*time.Minute, project.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

// Setenv forbids t.Parallel.
func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("PKGPIPE_WORKERS", "2")
	t.Setenv("PKGPIPE_TIMEOUT", "30s")

	project, err := config.Load(writeConfig(t, fullDocument))
	require.NoError(t, err)
	assert.Equal(t, 2, project.Workers)
	assert.Equal(t, 30*time.Second, project.Timeout)
}

func TestLoadInvalidEnvironmentOverride(t *testing.T) {
	tcs := map[string]struct {
		env      map[string]string
		wantPath string
	}{
		"timeout":          {env: map[string]string{"PKGPIPE_TIMEOUT": "abc"}, wantPath: "/timeout"},
		"negative timeout": {env: map[string]string{"PKGPIPE_TIMEOUT": "-5s"}, wantPath: "/timeout"},
		"workers":          {env: map[string]string{"PKGPIPE_WORKERS": "many"}, wantPath: "/workers"},
		"negative workers": {env: map[string]string{"PKGPIPE_WORKERS": "-1"}, wantPath: "/workers"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := config.Load(writeConfig(t, fullDocument))
			require.ErrorIs(t, err, pipeline.ErrConfiguration)
			assert.Equal(t, pipeline.ExitConfiguration, pipeline.ExitCode(err))

			var validationErr *config.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Len(t, validationErr.Issues, 1)
			assert.Equal(t, tc.wantPath, validationErr.Issues[0].Path)
		})
	}
}

func TestLoadFlagOverride(t *testing.T) {
	t.Setenv("PKGPIPE_WORKERS", "2")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Parse([]string{"--workers", "8"}))

	loader := config.NewLoader()
	require.NoError(t, loader.BindFlag(config.KeyWorkers, flags.Lookup("workers")))
	require.Error(t, loader.BindFlag(config.KeyTimeout, flags.Lookup("timeout")))

	project, err := loader.Load(writeConfig(t, fullDocument))
	require.NoError(t, err)
	assert.Equal(t, 8, project.Workers)
}

func projectTree() fstest.MapFS {
	return fstest.MapFS{
		"dist/index.js":       {Data: []byte("bundle")},
		"dist/docs/index.htm": {Data: []byte("docs")},
		"coverage/lcov.info":  {Data: []byte("lcov")},
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	project, err := config.Parse([]byte(fullDocument))
	require.NoError(t, err)

	graph, registry, err := config.Assemble(project, projectTree())
	require.NoError(t, err)

	assert.Equal(t, []string{"dist", "coverage", "docs"}, registry.IDs())
	assert.Equal(t, []string{model.BuildStep, model.TestStep, "doc", model.PublishStep}, graph.Order())

	build, ok := graph.Step(model.BuildStep)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		config.EnvEntries:   "src/index.ts",
		config.EnvModules:   "workers=src/workers.ts",
		config.EnvExternals: "rxjs",
	}, build.Command.Env)
	assert.Equal(t, 10*time.Minute, build.Timeout)

	test, _ := graph.Step(model.TestStep)
	assert.Equal(t, []string{"jest", "--ci"}, test.Command.Args)
	assert.Equal(t, map[string]string{config.EnvTestSuite: "https://github.com/youwol/integration-tests-conf"}, test.Command.Env)
	assert.Equal(t, []string{"coverage"}, test.Produces)
	// the override sets no timeout, the declared one is kept.
	assert.Equal(t, 10*time.Minute, test.Timeout)

	doc, _ := graph.Step("doc")
	assert.Equal(t, 2*time.Minute, doc.Timeout)

	publish, _ := graph.Step(model.PublishStep)
	assert.Equal(t, []string{model.TestStep, model.BuildStep, "doc"}, publish.DependsOn)
}

func TestAssembleCommandEnvWins(t *testing.T) {
	t.Parallel()

	project, err := config.Parse([]byte(`
name: pkg
version: 1.0.0
bundle:
  entries: [index.js]
  command: {program: node, args: [build.js], env: {PKGPIPE_ENTRIES: main.js}}
`))
	require.NoError(t, err)

	graph, _, err := config.Assemble(project, projectTree())
	require.NoError(t, err)

	build, _ := graph.Step(model.BuildStep)
	assert.Equal(t, "main.js", build.Command.Env[config.EnvEntries])

	test, _ := graph.Step(model.TestStep)
	assert.True(t, test.Command.IsZero())
}

func TestAssembleOverrideTimeout(t *testing.T) {
	t.Parallel()

	project, err := config.Parse([]byte(`
name: pkg
version: 1.0.0
bundle:
  entries: [index.js]
  command: {program: webpack}
  timeout: 5m
test:
  command: {program: jest}
  timeout: 3m
overrides:
  - step: build
    command: {program: esbuild}
  - step: test
    command: {program: vitest}
    timeout: 1m
timeout: 10m
`))
	require.NoError(t, err)

	graph, _, err := config.Assemble(project, projectTree())
	require.NoError(t, err)

	build, _ := graph.Step(model.BuildStep)
	assert.Equal(t, "esbuild", build.Command.Program)
	assert.Equal(t, 5*time.Minute, build.Timeout)

	test, _ := graph.Step(model.TestStep)
	assert.Equal(t, "vitest", test.Command.Program)
	assert.Equal(t, time.Minute, test.Timeout)
}

func TestAssembleErrors(t *testing.T) {
	t.Parallel()

	const base = "name: pkg\nversion: 1.0.0\nbundle: {entries: [index.js]}\n"

	tcs := map[string]struct {
		doc    string
		target any
	}{
		"override unknown step": {
			doc:    base + "overrides: [{step: deploy, command: {program: rsync}}]\n",
			target: new(*pipeline.UnknownStepError),
		},
		"extra step reusing a standard id": {
			doc:    base + "steps: [{id: test}]\n",
			target: new(*pipeline.DuplicateStepError),
		},
		"dangling dependency": {
			doc:    base + "steps: [{id: doc, dependsOn: [lint]}]\n",
			target: new(*pipeline.DanglingDependencyError),
		},
		"cycle": {
			doc:    base + "steps: [{id: a, dependsOn: [b]}, {id: b, dependsOn: [a]}]\n",
			target: new(*pipeline.CyclicDependencyError),
		},
		"duplicate artifact": {
			doc:    base + "artifacts: [{id: dist}, {id: dist}]\n",
			target: new(*pipeline.DuplicateArtifactError),
		},
		"invalid pattern": {
			doc:    base + "artifacts: [{id: dist, include: ['dist/[a-']}]\n",
			target: new(*pipeline.InvalidPatternError),
		},
		"packaged artifact without producer": {
			doc:    base + "artifacts: [{id: readme, include: [README.md]}]\npublish: {artifacts: [readme]}\n",
			target: new(*config.ValidationError),
		},
		"publish depending on itself through an override": {
			doc: base + "artifacts: [{id: pkg}]\npublish: {artifacts: [pkg]}\n" +
				"overrides: [{step: publish, command: {program: npm}, produces: [pkg]}]\n",
			target: new(*pipeline.CyclicDependencyError),
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			project, err := config.Parse([]byte(tc.doc))
			require.NoError(t, err)

			_, _, err = config.Assemble(project, projectTree())
			require.ErrorAs(t, err, tc.target)
			require.ErrorIs(t, err, pipeline.ErrConfiguration)
		})
	}
}
