package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/internal/logging"
	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

type rootFlags struct {
	logLevel   string
	logFormat  string
	configPath string
	projectDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "pkgpipe",
		Short: "Build, test and publish a package",
		Long: "pkgpipe runs the build, test and publish steps of a package, and any extra step declared\n" +
			"in its pipeline.yaml, as a dependency graph. Independent steps run concurrently.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(flags.logLevel)
			if err != nil {
				return errors.Wrapf(pipeline.ErrConfiguration, "%v", err)
			}

			err = logging.Init(level, flags.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return errors.Wrapf(pipeline.ErrConfiguration, "%v", err)
			}

			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", logging.FormatText, "log format: text or json")
	pf.StringVarP(&flags.configPath, "config", "c", "", "configuration file (default <project>/"+config.DefaultFileName+")")
	pf.StringVarP(&flags.projectDir, "project", "p", ".", "project directory")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newValidateCmd(flags))
	root.AddCommand(newGraphCmd(flags))
	root.AddCommand(newScaffoldCmd())

	return root
}

func (f *rootFlags) config() string {
	if f.configPath != "" {
		return f.configPath
	}

	return filepath.Join(f.projectDir, config.DefaultFileName)
}

// load reads the configuration and assembles the pipeline. Artifacts are resolved in the project
// directory, which defaults to the directory of the configuration file.
func (f *rootFlags) load(cmd *cobra.Command, loader *config.Loader) (*config.Project, *pipeline.Graph, *pipeline.ArtifactRegistry, error) {
	project, err := loader.Load(f.config())
	if err != nil {
		return nil, nil, nil, err
	}

	if cmd.Flags().Changed("project") {
		dir, err := filepath.Abs(f.projectDir)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "unable to resolve %s", f.projectDir)
		}

		project.Dir = dir
	}

	graph, registry, err := config.Assemble(project, os.DirFS(project.Dir))
	if err != nil {
		return nil, nil, nil, err
	}

	return project, graph, registry, nil
}
