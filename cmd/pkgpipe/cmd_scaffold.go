package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/internal/scaffold"
)

func newScaffoldCmd() *cobra.Command {
	data := scaffold.NewData("")

	cmd := &cobra.Command{
		Use:   "scaffold [dir]",
		Short: "Create a starter " + config.DefaultFileName,
		Long:  "Scaffold writes the starter files of a project. Existing files are never overwritten.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			if data.Name == "" {
				abs, err := filepath.Abs(dir)
				if err != nil {
					return err
				}

				data.Name = filepath.Base(abs)
			}

			res, err := scaffold.Generate(data, dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			for _, file := range res.Created {
				fmt.Fprintf(out, "created   %s\n", filepath.Join(res.Dir, file))
			}

			for _, file := range res.Unchanged {
				fmt.Fprintf(out, "unchanged %s\n", filepath.Join(res.Dir, file))
			}

			for _, file := range res.Skipped {
				fmt.Fprintf(out, "skipped   %s (exists with a different content)\n", filepath.Join(res.Dir, file))
			}

			for _, warning := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&data.Name, "name", "", "package name (default directory name)")
	f.StringVar(&data.Version, "version", data.Version, "initial version")
	f.StringVar(&data.Type, "type", data.Type, "package type: library or application")
	f.StringVar(&data.Description, "description", "", "short description")
	f.StringVar(&data.Author, "author", "", "author")
	f.StringVar(&data.Entry, "entry", data.Entry, "bundle entry file")
	f.StringVar(&data.TestSuite, "test-suite", "", "external conformance suite run by the test step")

	return cmd
}
