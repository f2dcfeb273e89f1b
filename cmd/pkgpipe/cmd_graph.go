package main

import (
	"github.com/spf13/cobra"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/drawer"
)

func newGraphCmd(root *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Write the step graph in the DOT language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, graph, _, err := root.load(cmd, config.NewLoader())
			if err != nil {
				return err
			}

			var drw drawer.Drawer = drawer.NewDOTWriterDrawer(cmd.OutOrStdout())
			if output != "" {
				drw = drawer.NewDOTDrawer(output)
			}

			hook := drawer.PipelineDrawer(drw)

			for _, step := range graph.Steps() {
				err := hook.PrepareStep(step)
				if err != nil {
					return err
				}
			}

			return hook.Finish(0)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write, standard output when empty")

	return cmd
}
