package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the workspace model current while files change",
	Long: `Watch the workspace and incrementally re-parse packages as files
change. Useful when driving renames from an editor or MCP client against
a long-lived process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		parser := analysis.NewParser(logger)
		ws, err := parser.ParseWorkspace(workspacePath)
		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}
		resolver := analysis.NewSymbolResolver(ws, parser, logger)
		for _, pkg := range ws.Packages {
			if _, err := resolver.BuildSymbolTable(pkg); err != nil {
				return err
			}
		}

		watcher, err := watch.NewWatcher(workspacePath, watchDebounce, logger)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()

		updater := watch.NewUpdater(ws, parser, resolver, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		events := make(chan []watch.ChangeEvent, 16)
		go func() {
			for batch := range events {
				updater.HandleChanges(batch)
			}
		}()

		fmt.Printf("watching %s (%d packages)\n", workspacePath, updater.PackageCount())
		err = watcher.Run(ctx, events)
		close(events)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 250*time.Millisecond, "Delay before a batch of changes is processed")
	rootCmd.AddCommand(watchCmd)
}
