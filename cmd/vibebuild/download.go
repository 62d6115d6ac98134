package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadVersion string

var downloadCmd = &cobra.Command{
	Use:   "download <package-name>",
	Short: "Fetch a source archive for a package name without building it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVar(&downloadVersion, "version", "", "specific package version")
}

func runDownload(cmd *cobra.Command, args []string) error {
	st, err := buildStack(cfgFile)
	if err != nil {
		return err
	}

	path, err := st.fetcher.Fetch(cmd.Context(), args[0], downloadVersion)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
