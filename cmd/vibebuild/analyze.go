package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <archive.src.rpm>",
	Short: "Extract package metadata and BuildRequires from a source archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	st, err := buildStack(cfgFile)
	if err != nil {
		return err
	}

	info, err := st.reader.Info(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if analyzeJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (nvr: %s)\n", info.Name, info.NVR())
	fmt.Fprintf(cmd.OutOrStdout(), "BuildRequires:\n")
	for _, req := range info.BuildRequires {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", req.String())
	}
	return nil
}
