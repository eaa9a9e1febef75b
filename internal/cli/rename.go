package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamaar/saferename/pkg/refactor"
	"github.com/mamaar/saferename/pkg/types"
)

var (
	renamePackage  string
	renameStrings  bool
	renameComments bool
	renameFiles    bool
	renameApply    bool
	renamePlanOut  string
)

var renameCmd = &cobra.Command{
	Use:   "rename <symbol> <new-name>",
	Short: "Rename a symbol across the workspace",
	Long: `Rename a symbol everywhere it is referenced. Methods are addressed as
Type.Method. Without --apply the plan is previewed on stdout and nothing
is written.

Examples:
  saferename rename Greet Welcome
  saferename rename Server.Start Server.Run --package ./internal/api
  saferename rename Widget Gadget --rename-files --apply`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		engine, config, err := newEngine(logger)
		if err != nil {
			return err
		}

		ws, err := engine.LoadWorkspace(workspacePath)
		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}

		req := types.RenameSymbolRequest{
			SymbolName: args[0],
			NewName:    args[1],
			Package:    renamePackage,
			Options:    renameOptions(cmd, config),
		}

		plan, err := engine.RenameSymbol(cmd.Context(), ws, req)
		if err != nil {
			return err
		}

		return deliverPlan(engine, ws, plan, renameApply, renamePlanOut)
	},
}

// renameOptions merges workspace config defaults with explicitly set flags.
func renameOptions(cmd *cobra.Command, config *refactor.EngineConfig) types.RenameOptions {
	opts := config.Options()
	if cmd.Flags().Changed("strings") {
		opts.RenameInStrings = renameStrings
	}
	if cmd.Flags().Changed("comments") {
		opts.RenameInComments = renameComments
	}
	if cmd.Flags().Changed("rename-files") {
		opts.RenameFile = renameFiles
	}
	return opts
}

// deliverPlan is the shared tail of the planning commands: preview, then
// apply or save if asked to.
func deliverPlan(engine refactor.Engine, ws *types.Workspace, plan *types.RefactoringPlan, apply bool, planOut string) error {
	preview, err := engine.PreviewPlan(plan)
	if err != nil {
		return err
	}
	fmt.Print(preview)

	if planOut != "" {
		id, err := refactor.NewSerializer(newLogger()).SavePlan(plan, planOut)
		if err != nil {
			return err
		}
		fmt.Printf("\nplan %s written to %s\n", id, planOut)
	}

	if !apply {
		return nil
	}
	if err := engine.ExecutePlan(ws, plan); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\napplied %d changes\n", len(plan.Changes))
	return nil
}

func init() {
	renameCmd.Flags().StringVarP(&renamePackage, "package", "p", "", "Limit the rename to one package")
	renameCmd.Flags().BoolVar(&renameStrings, "strings", false, "Also rewrite matches inside string literals")
	renameCmd.Flags().BoolVar(&renameComments, "comments", false, "Also rewrite matches inside comments")
	renameCmd.Flags().BoolVar(&renameFiles, "rename-files", false, "Rename files named after the symbol")
	renameCmd.Flags().BoolVar(&renameApply, "apply", false, "Write the changes to disk")
	renameCmd.Flags().StringVar(&renamePlanOut, "plan", "", "Save the plan to this file instead of applying")
	rootCmd.AddCommand(renameCmd)
}
