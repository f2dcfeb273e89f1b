package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askiada/go-pkgpipe/internal/config"
)

func newValidateCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the step graph without running anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, graph, registry, err := root.load(cmd, config.NewLoader())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s@%s: %d steps, %d artifacts\n", project.Name, project.Version, graph.Len(), len(registry.IDs()))
			fmt.Fprintf(out, "Order: %s\n", strings.Join(graph.Order(), " -> "))

			return nil
		},
	}
}
