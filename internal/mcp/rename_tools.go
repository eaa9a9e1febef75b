package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mamaar/saferename/pkg/types"
)

// --- rename_symbol ---

type RenameSymbolInput struct {
	Symbol         string `json:"symbol" jsonschema:"current symbol name"`
	NewName        string `json:"new_name" jsonschema:"new name for the symbol"`
	Package        string `json:"package,omitempty" jsonschema:"package path (empty for workspace-wide)"`
	Apply          bool   `json:"apply,omitempty" jsonschema:"write the changes to disk (default is preview only)"`
	RenameStrings  bool   `json:"rename_strings,omitempty" jsonschema:"also rewrite matches inside string literals"`
	RenameComments bool   `json:"rename_comments,omitempty" jsonschema:"also rewrite matches inside comments"`
	RenameFiles    bool   `json:"rename_files,omitempty" jsonschema:"rename files named after the symbol"`
}

// --- rename_method ---

type RenameMethodInput struct {
	TypeName      string `json:"type_name" jsonschema:"name of the type that owns the method"`
	MethodName    string `json:"method_name" jsonschema:"current method name"`
	NewMethodName string `json:"new_method_name" jsonschema:"new method name"`
	PackagePath   string `json:"package_path,omitempty" jsonschema:"package path (empty for workspace-wide)"`
	Apply         bool   `json:"apply,omitempty" jsonschema:"write the changes to disk (default is preview only)"`
}

// --- batch_rename ---

type BatchRenameInput struct {
	Renames []BatchRenamePair `json:"renames" jsonschema:"symbol renames applied as one session"`
	Package string            `json:"package,omitempty" jsonschema:"package path (empty for workspace-wide)"`
	Apply   bool              `json:"apply,omitempty" jsonschema:"write the changes to disk (default is preview only)"`
}

type BatchRenamePair struct {
	Symbol  string `json:"symbol" jsonschema:"current symbol name"`
	NewName string `json:"new_name" jsonschema:"new name for the symbol"`
}

func registerRenameTools(s *mcpsdk.Server, state *MCPServer) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "rename_symbol",
		Description: "Rename a symbol (function, type, variable, constant) across the workspace. References that would re-bind to a different declaration are qualified or reported as conflicts.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in RenameSymbolInput) (*mcpsdk.CallToolResult, any, error) {
		state.RLock()

		ws, err := state.GetWorkspace()
		if err != nil {
			state.RUnlock()
			return errResult(err), nil, nil
		}

		opts := state.Options()
		opts.RenameInStrings = opts.RenameInStrings || in.RenameStrings
		opts.RenameInComments = opts.RenameInComments || in.RenameComments
		opts.RenameFile = opts.RenameFile || in.RenameFiles

		pkg := in.Package
		if pkg != "" {
			pkg = types.ResolvePackagePath(ws, pkg)
		}
		plan, err := state.GetEngine().RenameSymbol(ctx, ws, types.RenameSymbolRequest{
			SymbolName: in.Symbol,
			NewName:    in.NewName,
			Package:    pkg,
			Options:    opts,
		})
		if err != nil {
			state.RUnlock()
			return errResult(err), nil, nil
		}

		desc := "rename " + in.Symbol + " to " + in.NewName
		return finishPlan(state, ws, plan, desc, in.Apply)
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "rename_method",
		Description: "Rename a method on a specific type. Interfaces the receiver no longer satisfies afterwards are reported as conflicts.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in RenameMethodInput) (*mcpsdk.CallToolResult, any, error) {
		state.RLock()

		ws, err := state.GetWorkspace()
		if err != nil {
			state.RUnlock()
			return errResult(err), nil, nil
		}
		pkgPath := in.PackagePath
		if pkgPath != "" {
			pkgPath = types.ResolvePackagePath(ws, pkgPath)
		}
		plan, err := state.GetEngine().RenameSymbol(ctx, ws, types.RenameSymbolRequest{
			SymbolName: in.TypeName + "." + in.MethodName,
			NewName:    in.NewMethodName,
			Package:    pkgPath,
			Options:    state.Options(),
		})
		if err != nil {
			state.RUnlock()
			return errResult(err), nil, nil
		}

		desc := "rename " + in.TypeName + "." + in.MethodName + " to " + in.NewMethodName
		return finishPlan(state, ws, plan, desc, in.Apply)
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "batch_rename",
		Description: "Rename several symbols as one session. The renames see each other during conflict detection, so swapping two names reports the collision.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in BatchRenameInput) (*mcpsdk.CallToolResult, any, error) {
		state.RLock()

		ws, err := state.GetWorkspace()
		if err != nil {
			state.RUnlock()
			return errResult(err), nil, nil
		}
		pkg := in.Package
		if pkg != "" {
			pkg = types.ResolvePackagePath(ws, pkg)
		}

		reqs := make([]types.RenameSymbolRequest, 0, len(in.Renames))
		for _, pair := range in.Renames {
			reqs = append(reqs, types.RenameSymbolRequest{
				SymbolName: pair.Symbol,
				NewName:    pair.NewName,
				Package:    pkg,
				Options:    state.Options(),
			})
		}
		plan, err := state.GetEngine().BatchRename(ctx, ws, reqs)
		if err != nil {
			state.RUnlock()
			return errResult(err), nil, nil
		}

		return finishPlan(state, ws, plan, fmt.Sprintf("batch rename of %d symbols", len(in.Renames)), in.Apply)
	})
}

// finishPlan is the common tail of the rename tools: either apply the plan,
// or release the lock and return the preview. A blocking conflict downgrades
// an apply request to a preview so nothing half-broken lands on disk.
func finishPlan(state *MCPServer, ws *types.Workspace, plan *types.RefactoringPlan, desc string, apply bool) (*mcpsdk.CallToolResult, any, error) {
	if apply && !hasBlockingConflict(plan) {
		result, err := executePlanWithUnlock(state, ws, plan, desc)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(result), nil, nil
	}
	defer state.RUnlock()
	return textResult(planResult(state, plan, desc, false)), nil, nil
}

func hasBlockingConflict(plan *types.RefactoringPlan) bool {
	for _, loc := range plan.RelatedLocations {
		if loc.Type == types.UnresolvableConflict || loc.Type == types.UnresolvedConflict {
			return true
		}
	}
	return false
}
