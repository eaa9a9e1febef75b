package mcp

import (
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mamaar/saferename/pkg/types"
)

// PlanResult is the structured output returned by the rename tools.
type PlanResult struct {
	Description   string           `json:"description"`
	Applied       bool             `json:"applied"`
	ChangeCount   int              `json:"change_count"`
	AffectedFiles []string         `json:"affected_files"`
	FileRenames   []string         `json:"file_renames,omitempty"`
	Conflicts     []ConflictResult `json:"conflicts,omitempty"`
	Preview       string           `json:"preview,omitempty"`
}

// ConflictResult is one conflict entry of a plan, flattened for JSON.
type ConflictResult struct {
	File     string `json:"file"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Type     string `json:"type"`
	Blocking bool   `json:"blocking"`
}

// planResult builds a PlanResult from a plan, including the human preview.
func planResult(state *MCPServer, plan *types.RefactoringPlan, desc string, applied bool) *PlanResult {
	out := &PlanResult{
		Description:   desc,
		Applied:       applied,
		ChangeCount:   len(plan.Changes),
		AffectedFiles: plan.AffectedFiles,
	}
	for _, fr := range plan.FileRenames {
		out.FileRenames = append(out.FileRenames, fmt.Sprintf("%s -> %s", fr.OldPath, fr.NewPath))
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
	if !applied {
		if preview, err := state.GetEngine().PreviewPlan(plan); err == nil {
			out.Preview = preview
		}
	}
	return out
}

// executePlanWithUnlock releases the read lock, applies the plan, and syncs
// the workspace model with the files just written. Use when the caller holds
// the read lock; SyncWorkspaceChanges needs the write lock.
func executePlanWithUnlock(state *MCPServer, ws *types.Workspace, plan *types.RefactoringPlan, desc string) (*PlanResult, error) {
	state.RUnlock()
	if err := state.GetEngine().ExecutePlan(ws, plan); err != nil {
		return nil, fmt.Errorf("execute plan: %w", err)
	}
	state.SyncWorkspaceChanges(plan.AffectedFiles)
	return planResult(state, plan, desc, true), nil
}

// textResult is a convenience that marshals v to JSON and wraps it in a
// CallToolResult with a single TextContent block.
func textResult(v any) *mcpsdk.CallToolResult {
	b, _ := json.MarshalIndent(v, "", "  ")
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a CallToolResult that signals an error.
func errResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
	}
}
