package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mamaar/saferename/pkg/types"
)

var (
	batchPackage string
	batchApply   bool
	batchPlanOut string
)

var batchCmd = &cobra.Command{
	Use:   "batch <old=new>...",
	Short: "Rename several symbols in one pass",
	Long: `Rename several symbols as a single session. The renames see each
other during conflict detection, so swapping two names reports the
collision instead of merging the symbols.

Example:
  saferename batch Reader=Source Writer=Sink --apply`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		engine, config, err := newEngine(logger)
		if err != nil {
			return err
		}

		var reqs []types.RenameSymbolRequest
		for _, arg := range args {
			oldName, newName, ok := strings.Cut(arg, "=")
			if !ok || oldName == "" || newName == "" {
				return fmt.Errorf("invalid rename pair %q, expected old=new", arg)
			}
			reqs = append(reqs, types.RenameSymbolRequest{
				SymbolName: oldName,
				NewName:    newName,
				Package:    batchPackage,
				Options:    config.Options(),
			})
		}

		ws, err := engine.LoadWorkspace(workspacePath)
		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}

		plan, err := engine.BatchRename(cmd.Context(), ws, reqs)
		if err != nil {
			return err
		}

		return deliverPlan(engine, ws, plan, batchApply, batchPlanOut)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchPackage, "package", "p", "", "Limit the renames to one package")
	batchCmd.Flags().BoolVar(&batchApply, "apply", false, "Write the changes to disk")
	batchCmd.Flags().StringVar(&batchPlanOut, "plan", "", "Save the plan to this file instead of applying")
	rootCmd.AddCommand(batchCmd)
}
