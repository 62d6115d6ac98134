package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssokkol/koji-vibebuild/internal/domain/graph"
)

var planCmd = &cobra.Command{
	Use:   "plan <archive.src.rpm>",
	Short: "Print the dependency graph and parallel build levels for an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	st, err := buildStack(cfgFile)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	info, err := st.reader.Info(ctx, args[0])
	if err != nil {
		return err
	}

	g, err := st.resolver.BuildGraph(ctx, info.Name, args[0], st.resolveArchive)
	if err != nil {
		return err
	}

	order, err := graph.TopologicalSort(g)
	if err != nil {
		return err
	}
	graph.AssignBuildOrder(g, order)
	chain := graph.BuildChain(g, order)

	for i, level := range chain {
		fmt.Fprintf(cmd.OutOrStdout(), "level %d:\n", i)
		for _, name := range level {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
		}
	}
	return nil
}
