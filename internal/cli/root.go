// Package cli implements the saferename command-line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamaar/saferename/pkg/refactor"
)

var (
	workspacePath string
	verbose       bool
	logJSON       bool
)

var rootCmd = &cobra.Command{
	Use:   "saferename",
	Short: "Conflict-aware symbol renaming for Go workspaces",
	Long: `saferename renames Go symbols across a workspace without silently
changing what the code means. Every reference that would re-bind to a
different declaration after the rename is either repaired by qualifying
it, or reported as a conflict instead of being rewritten.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspacePath, "workspace", "w", ".", "Path to the workspace root")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
}

// newLogger builds the logger shared by every command. Logs go to stderr so
// stdout stays clean for previews and plans.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newEngine loads .saferename.yaml from the workspace root and builds an
// engine configured by it.
func newEngine(logger *slog.Logger) (refactor.Engine, *refactor.EngineConfig, error) {
	config, err := refactor.LoadConfig(workspacePath)
	if err != nil {
		return nil, nil, err
	}
	return refactor.CreateEngineWithConfig(logger, config), config, nil
}
