package config

import (
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Environment passed to the standard steps.
const (
	EnvEntries   = EnvPrefix + "_ENTRIES"
	EnvModules   = EnvPrefix + "_MODULES"
	EnvExternals = EnvPrefix + "_EXTERNALS"
	EnvTestSuite = EnvPrefix + "_TEST_SUITE"
)

type declaration struct {
	id        string
	command   model.Command
	produces  []string
	dependsOn []string
	timeout   time.Duration
}

// Assemble registers the artifacts of the project and builds its pipeline graph: build, test, the extra
// steps, then publish, with the overrides applied last. Publish depends on test and on every step
// producing an artifact it packages. root is the project directory the artifacts are resolved in.
func Assemble(project *Project, root fs.FS) (*pipeline.Graph, *pipeline.ArtifactRegistry, error) {
	registry := pipeline.NewArtifactRegistry(root)

	for _, art := range project.Artifacts {
		_, err := registry.Register(art.ID, art.Selection(), art.Links...)
		if err != nil {
			return nil, nil, err
		}
	}

	decls := declarations(project)
	publishDeps, err := publishDependencies(project, decls)
	if err != nil {
		return nil, nil, err
	}

	decls = append(decls, declaration{
		id:        model.PublishStep,
		command:   project.Publish.Command,
		dependsOn: publishDeps,
		timeout:   project.Publish.Timeout,
	})

	builder := pipeline.NewBuilder()

	for _, decl := range decls {
		err := builder.AddStep(decl.id, withEnv(decl.command, stepEnv(project, decl.id)), decl.produces, decl.dependsOn,
			pipeline.StepTimeout(timeoutOr(decl.timeout, project.Timeout)))
		if err != nil {
			return nil, nil, err
		}
	}

	for _, override := range project.Overrides {
		opts := []pipeline.StepOption{}
		if override.Timeout > 0 {
			opts = append(opts, pipeline.StepTimeout(override.Timeout))
		}

		err := builder.OverrideStep(override.Step, withEnv(override.Command, stepEnv(project, override.Step)), override.Produces, opts...)
		if err != nil {
			return nil, nil, err
		}
	}

	graph, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}

	return graph, registry, nil
}

func declarations(project *Project) []declaration {
	decls := []declaration{
		{
			id:       model.BuildStep,
			command:  project.Bundle.Command,
			produces: project.Bundle.Produces,
			timeout:  project.Bundle.Timeout,
		},
		{
			id:        model.TestStep,
			command:   project.Test.Command,
			produces:  project.Test.Produces,
			dependsOn: []string{model.BuildStep},
			timeout:   project.Test.Timeout,
		},
	}

	for _, step := range project.Steps {
		decls = append(decls, declaration{
			id:        step.ID,
			command:   step.Command,
			produces:  step.Produces,
			dependsOn: step.DependsOn,
			timeout:   step.Timeout,
		})
	}

	return decls
}

// publishDependencies returns test followed by the producers of the packaged artifacts, taking the
// outputs replaced by overrides into account.
func publishDependencies(project *Project, decls []declaration) ([]string, error) {
	producers := make(map[string]string)

	for _, decl := range decls {
		produces := decl.produces

		for _, override := range project.Overrides {
			if override.Step == decl.id && override.Produces != nil {
				produces = override.Produces
			}
		}

		for _, id := range produces {
			producers[id] = decl.id
		}
	}

	// publish producing what it packages ends up depending on itself, reported as a cycle.
	for _, override := range project.Overrides {
		if override.Step == model.PublishStep {
			for _, id := range override.Produces {
				producers[id] = model.PublishStep
			}
		}
	}

	deps := []string{model.TestStep}
	issues := []Issue{}

	for i, id := range project.Publish.Artifacts {
		producer, ok := producers[id]
		if !ok {
			issues = append(issues, Issue{Path: pathOf("/publish/artifacts", i), Message: "artifact " + id + " is not produced by any step"})

			continue
		}

		if !slices.Contains(deps, producer) {
			deps = append(deps, producer)
		}
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return deps, nil
}

func stepEnv(project *Project, id string) map[string]string {
	switch id {
	case model.BuildStep:
		modules := make([]string, 0, len(project.Bundle.Modules))
		for _, module := range project.Bundle.Modules {
			modules = append(modules, module.Name+"="+module.Entry)
		}

		return map[string]string{
			EnvEntries:   strings.Join(project.Bundle.Entries, ","),
			EnvModules:   strings.Join(modules, ","),
			EnvExternals: strings.Join(project.Bundle.RuntimeExternals(), ","),
		}
	case model.TestStep:
		if project.Test.Suite == "" {
			return nil
		}

		return map[string]string{EnvTestSuite: project.Test.Suite}
	default:
		return nil
	}
}

// withEnv adds env to the command, the command's own variables win.
func withEnv(cmd model.Command, env map[string]string) model.Command {
	if cmd.IsZero() || len(env) == 0 {
		return cmd
	}

	merged := maps.Clone(env)
	maps.Copy(merged, cmd.Env)
	cmd.Env = merged

	return cmd
}

func timeoutOr(timeout, fallback time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}

	return fallback
}
