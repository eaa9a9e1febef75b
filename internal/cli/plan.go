package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamaar/saferename/pkg/refactor"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Work with saved rename plans",
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-file>",
	Short: "Preview a saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		plan, err := refactor.NewSerializer(logger).LoadPlan(args[0])
		if err != nil {
			return err
		}
		engine, _, err := newEngine(logger)
		if err != nil {
			return err
		}
		preview, err := engine.PreviewPlan(plan)
		if err != nil {
			return err
		}
		fmt.Print(preview)
		return nil
	},
}

var planApplyCmd = &cobra.Command{
	Use:   "apply <plan-file>",
	Short: "Execute a saved plan",
	Long: `Execute a previously saved plan. Each change is checked against the
current file content before writing; a file that drifted since planning
aborts the whole run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		plan, err := refactor.NewSerializer(logger).LoadPlan(args[0])
		if err != nil {
			return err
		}
		engine, _, err := newEngine(logger)
		if err != nil {
			return err
		}
		ws, err := engine.LoadWorkspace(workspacePath)
		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}
		if err := engine.ExecutePlan(ws, plan); err != nil {
			return err
		}
		fmt.Printf("applied %d changes\n", len(plan.Changes))
		return nil
	},
}

func init() {
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planApplyCmd)
	rootCmd.AddCommand(planCmd)
}
