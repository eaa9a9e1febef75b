package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mamaar/saferename/pkg/refactor"
	"github.com/mamaar/saferename/pkg/types"
)

// --- analyze_rename ---

type AnalyzeRenameInput struct {
	Symbol  string `json:"symbol" jsonschema:"current symbol name"`
	NewName string `json:"new_name" jsonschema:"proposed new name"`
	Package string `json:"package,omitempty" jsonschema:"package path (empty for workspace-wide)"`
}

type AnalyzeRenameOutput struct {
	AffectedPackages []string         `json:"affected_packages"`
	AffectedFiles    []string         `json:"affected_files"`
	Conflicts        []ConflictResult `json:"conflicts,omitempty"`
	Safe             bool             `json:"safe"`
}

// --- save_rename_plan ---

type SaveRenamePlanInput struct {
	Symbol  string `json:"symbol" jsonschema:"current symbol name"`
	NewName string `json:"new_name" jsonschema:"new name for the symbol"`
	Package string `json:"package,omitempty" jsonschema:"package path (empty for workspace-wide)"`
	PlanOut string `json:"plan_out" jsonschema:"file path to write the plan to"`
}

type SaveRenamePlanOutput struct {
	PlanID      string `json:"plan_id"`
	PlanPath    string `json:"plan_path"`
	ChangeCount int    `json:"change_count"`
}

func registerPlanTools(s *mcpsdk.Server, state *MCPServer) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "analyze_rename",
		Description: "Report the blast radius of a rename without changing anything: affected packages and files, and every conflict the rename would hit.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in AnalyzeRenameInput) (*mcpsdk.CallToolResult, any, error) {
		state.RLock()
		defer state.RUnlock()

		ws, err := state.GetWorkspace()
		if err != nil {
			return errResult(err), nil, nil
		}
		pkg := in.Package
		if pkg != "" {
			pkg = types.ResolvePackagePath(ws, pkg)
		}
		plan, err := state.GetEngine().RenameSymbol(ctx, ws, types.RenameSymbolRequest{
			SymbolName: in.Symbol,
			NewName:    in.NewName,
			Package:    pkg,
			Options:    state.Options(),
		})
		if err != nil {
			return errResult(err), nil, nil
		}

		out := AnalyzeRenameOutput{
			AffectedFiles: plan.AffectedFiles,
			Safe:          !hasBlockingConflict(plan),
		}
		if plan.Impact != nil {
			out.AffectedPackages = plan.Impact.AffectedPackages
		}
		for _, loc := range plan.RelatedLocations {
			if !loc.Type.IsConflict() {
				continue
			}
			out.Conflicts = append(out.Conflicts, ConflictResult{
				File:     loc.File,
				Start:    loc.Span.Start,
				End:      loc.Span.End,
				Type:     loc.Type.String(),
				Blocking: loc.Type == types.UnresolvableConflict || loc.Type == types.UnresolvedConflict,
			})
		}
		return textResult(out), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "save_rename_plan",
		Description: "Plan a rename and save it to a file for later execution, e.g. after review.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in SaveRenamePlanInput) (*mcpsdk.CallToolResult, any, error) {
		state.RLock()
		defer state.RUnlock()

		ws, err := state.GetWorkspace()
		if err != nil {
			return errResult(err), nil, nil
		}
		pkg := in.Package
		if pkg != "" {
			pkg = types.ResolvePackagePath(ws, pkg)
		}
		plan, err := state.GetEngine().RenameSymbol(ctx, ws, types.RenameSymbolRequest{
			SymbolName: in.Symbol,
			NewName:    in.NewName,
			Package:    pkg,
			Options:    state.Options(),
		})
		if err != nil {
			return errResult(err), nil, nil
		}

		id, err := refactor.NewSerializer(state.logger).SavePlan(plan, in.PlanOut)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(SaveRenamePlanOutput{
			PlanID:      id,
			PlanPath:    in.PlanOut,
			ChangeCount: len(plan.Changes),
		}), nil, nil
	})
}
