package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vibebuild",
	Short: "Dependency-aware RPM build automation on top of a build hub",
	Long: `vibebuild resolves the unbuilt BuildRequires closure of a source package,
orders it into parallel levels, and drives each level's submission through
a koji-compatible build hub.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "vibebuild.yaml", "config file (yaml, toml, or ini)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// formatError renders CoreError-based errors with their suggestion, and
// falls back to err.Error() for anything else.
func formatError(err error) string {
	if ce := vberrors.GetCoreError(err); ce != nil {
		msg := ce.Message
		if ce.Context != "" {
			msg += fmt.Sprintf(" (%s)", ce.Context)
		}
		if ce.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", ce.Suggestion)
		}
		if verbose && ce.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", ce.Underlying)
		}
		return msg
	}
	var cycleErr *vberrors.CircularDependencyError
	if errors.As(err, &cycleErr) {
		return cycleErr.Error()
	}
	return err.Error()
}

func printError(err error) {
	printErrorTo(os.Stderr, err)
}

func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
