package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssokkol/koji-vibebuild/internal/domain/orchestrate"
)

var (
	buildJSON    bool
	buildScratch bool
	buildNoWait  bool
)

var buildCmd = &cobra.Command{
	Use:   "build <archive.src.rpm>",
	Short: "Build an archive and every unresolved BuildRequires it needs first",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "output the result as JSON")
	buildCmd.Flags().BoolVar(&buildScratch, "scratch", false, "submit scratch builds")
	buildCmd.Flags().BoolVar(&buildNoWait, "no-wait", false, "submit builds without waiting for completion")
}

func runBuild(cmd *cobra.Command, args []string) error {
	st, err := buildStack(cfgFile)
	if err != nil {
		return err
	}
	if buildScratch || buildNoWait {
		st.cfg.Scratch = st.cfg.Scratch || buildScratch
		st.cfg.NoWait = st.cfg.NoWait || buildNoWait
		st.orchestrator = orchestrate.New(st.hubClient, st.reader, st.resolver, st.logger, orchestrate.Config{
			HubBuildTag:         st.cfg.HubBuildTag,
			HubTarget:           st.cfg.HubTarget,
			MaxParallelPerLevel: st.cfg.MaxParallelPerLevel,
			Scratch:             st.cfg.Scratch,
			NoWait:              st.cfg.NoWait,
		})
	}

	result, err := st.orchestrator.BuildWithDeps(cmd.Context(), args[0], st.resolveArchive)
	if err != nil {
		return err
	}

	if buildJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "success: %v\n", result.Success)
		fmt.Fprintf(cmd.OutOrStdout(), "built: %v\n", result.BuiltPackages)
		if len(result.FailedPackages) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "failed: %v\n", result.FailedPackages)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "elapsed: %.1fs\n", result.TotalSeconds)
	}

	if !result.Success {
		return fmt.Errorf("build failed: %v", result.FailedPackages)
	}
	return nil
}
