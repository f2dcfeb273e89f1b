package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/internal/logging"
	"github.com/askiada/go-pkgpipe/pkg/pipeline"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/drawer"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/measure"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

type runFlags struct {
	only     []string
	manifest string
	graph    string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline",
		Long: "Run executes every step of the pipeline. A failed step skips the steps depending on it,\n" +
			"the other steps keep running. Interrupting pkgpipe lets running commands finish and skips the\n" +
			"steps that did not start.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, root, flags)
		},
	}

	f := cmd.Flags()
	f.Int(config.KeyWorkers, 0, "maximum number of steps running at the same time (default number of CPUs)")
	f.Duration(config.KeyTimeout, 0, "default time budget of a step")
	f.StringSliceVar(&flags.only, "only", nil, "run only these steps, their dependencies outside the list are considered satisfied")
	f.StringVar(&flags.manifest, "manifest", "", "write the publish manifest to this file")
	f.StringVar(&flags.graph, "graph", "", "write the DOT graph of the run to this file")

	return cmd
}

func runPipeline(cmd *cobra.Command, root *rootFlags, flags *runFlags) error {
	loader := config.NewLoader()

	for _, key := range []string{config.KeyWorkers, config.KeyTimeout} {
		err := loader.BindFlag(key, cmd.Flags().Lookup(key))
		if err != nil {
			return err
		}
	}

	project, graph, registry, err := root.load(cmd, loader)
	if err != nil {
		return err
	}

	if len(flags.only) > 0 {
		graph, err = graph.Restrict(flags.only)
		if err != nil {
			return err
		}
	}

	msr := measure.NewDefaultMeasure()
	hooks := []model.PipelineOption{measure.PipelineMeasure(msr)}

	if flags.graph != "" {
		hooks = append(hooks, drawer.PipelineDrawer(drawer.NewDOTDrawer(flags.graph)))
	}

	opts := []pipeline.Option{
		pipeline.WithProjectDir(project.Dir),
		pipeline.WithLogger(logging.New("orchestrator").With("package", project.Name)),
		pipeline.WithHooks(hooks...),
	}

	if project.Workers > 0 {
		opts = append(opts, pipeline.WithWorkers(project.Workers))
	}

	orc, err := pipeline.NewOrchestrator(registry, opts...)
	if err != nil {
		return err
	}

	res, runErr := orc.Run(cmd.Context(), graph)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	writeStatusTable(out, res, msr)
	writeCriticalPath(out, graph, res)
	writeFailures(out, runErr)

	if res.Status(model.PublishStep) == model.StatusSucceeded && res.Manifest() != nil {
		writePackageContent(out, res.Manifest(), project.Publish.Artifacts)
	}

	if flags.manifest != "" && res.Manifest() != nil {
		err := writeManifest(flags.manifest, res.Manifest())
		if err != nil && runErr == nil {
			return err
		}
	}

	return runErr
}

func writeManifest(path string, manifest *pipeline.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to encode manifest")
	}

	err = os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // the manifest is not secret
	if err != nil {
		return errors.Wrapf(err, "unable to write manifest %s", path)
	}

	return nil
}
