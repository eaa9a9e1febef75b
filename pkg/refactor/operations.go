package refactor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/rename"
	"github.com/mamaar/saferename/pkg/types"
)

// RenameSymbolOperation renames one symbol across the workspace through a
// conflict-resolving session.
type RenameSymbolOperation struct {
	Request types.RenameSymbolRequest

	parser *analysis.GoParser
	logger *slog.Logger
}

func (op *RenameSymbolOperation) Type() types.OperationType {
	return types.RenameOperation
}

func (op *RenameSymbolOperation) Description() string {
	return fmt.Sprintf("rename %s to %s", op.Request.SymbolName, op.Request.NewName)
}

func (op *RenameSymbolOperation) Validate(ws *types.Workspace) error {
	if op.Request.SymbolName == "" || op.Request.NewName == "" {
		return &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "rename needs both a symbol name and a new name",
		}
	}
	symbols, err := op.targetSymbols(ws)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: fmt.Sprintf("no symbols found with name: %s", op.Request.SymbolName),
		}
	}
	return nil
}

func (op *RenameSymbolOperation) Execute(ws *types.Workspace) (*types.RefactoringPlan, error) {
	return op.ExecuteContext(context.Background(), ws)
}

// ExecuteContext resolves the target symbols, runs the rename session, and
// materializes the outcome as a plan. The replacement being an illegal
// identifier is not an error here; the plan reports it through its related
// locations, same as any other conflict.
func (op *RenameSymbolOperation) ExecuteContext(ctx context.Context, ws *types.Workspace) (*types.RefactoringPlan, error) {
	symbols, err := op.targetSymbols(ws)
	if err != nil {
		return nil, err
	}

	renames := make([]rename.SymbolRename, 0, len(symbols))
	for _, sym := range symbols {
		renames = append(renames, rename.SymbolRename{Symbol: sym, Replacement: op.Request.NewName})
	}

	session, err := rename.NewSession(ws, op.parser, op.logger, renames, op.Request.Options)
	if err != nil {
		return nil, err
	}
	res, err := session.ResolveConflicts(ctx)
	if err != nil {
		return nil, err
	}
	return planFromResolution(ws, res, op), nil
}

// targetSymbols resolves the request to concrete declarations: one per
// matching package, or exactly one when the request names a package.
func (op *RenameSymbolOperation) targetSymbols(ws *types.Workspace) ([]*types.Symbol, error) {
	resolver := analysis.NewSymbolResolver(ws, op.parser, op.logger)

	if op.Request.Package != "" {
		pkgPath := types.ResolvePackagePath(ws, op.Request.Package)
		pkg, exists := ws.Packages[pkgPath]
		if !exists {
			return nil, &types.RefactorError{
				Type:    types.SymbolNotFound,
				Message: fmt.Sprintf("package not found: %s", op.Request.Package),
			}
		}
		sym, err := resolveInPackage(resolver, pkg, op.Request.SymbolName)
		if err != nil {
			return nil, err
		}
		return []*types.Symbol{sym}, nil
	}

	var symbols []*types.Symbol
	for _, pkg := range ws.Packages {
		sym, err := resolveInPackage(resolver, pkg, op.Request.SymbolName)
		if err == nil {
			symbols = append(symbols, sym)
		}
	}
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].File != symbols[j].File {
			return symbols[i].File < symbols[j].File
		}
		return symbols[i].Offset < symbols[j].Offset
	})
	return symbols, nil
}

// resolveInPackage handles both plain names and Type.Method references.
func resolveInPackage(resolver *analysis.SymbolResolver, pkg *types.Package, name string) (*types.Symbol, error) {
	if typeName, methodName, ok := splitQualifiedName(name); ok {
		return resolver.ResolveQualifiedMethod(pkg, typeName, methodName)
	}
	return resolver.ResolveSymbol(pkg, name)
}

func splitQualifiedName(name string) (typeName, methodName string, ok bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], i > 0 && i < len(name)-1
		}
	}
	return "", "", false
}

// BatchRenameSymbolsOperation renames several symbols in one session, so all
// replacements see each other during conflict detection.
type BatchRenameSymbolsOperation struct {
	Requests []types.RenameSymbolRequest

	parser *analysis.GoParser
	logger *slog.Logger
}

func (op *BatchRenameSymbolsOperation) Type() types.OperationType {
	return types.BatchRenameOperation
}

func (op *BatchRenameSymbolsOperation) Description() string {
	return fmt.Sprintf("rename %d symbols", len(op.Requests))
}

func (op *BatchRenameSymbolsOperation) Validate(ws *types.Workspace) error {
	if len(op.Requests) == 0 {
		return &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "batch rename needs at least one request",
		}
	}
	for _, req := range op.Requests {
		single := &RenameSymbolOperation{Request: req, parser: op.parser, logger: op.logger}
		if err := single.Validate(ws); err != nil {
			return err
		}
	}
	return nil
}

func (op *BatchRenameSymbolsOperation) Execute(ws *types.Workspace) (*types.RefactoringPlan, error) {
	return op.ExecuteContext(context.Background(), ws)
}

func (op *BatchRenameSymbolsOperation) ExecuteContext(ctx context.Context, ws *types.Workspace) (*types.RefactoringPlan, error) {
	if len(op.Requests) == 0 {
		return nil, &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "batch rename needs at least one request",
		}
	}
	opts, err := batchOptions(op.Requests)
	if err != nil {
		return nil, err
	}

	var renames []rename.SymbolRename
	for _, req := range op.Requests {
		single := &RenameSymbolOperation{Request: req, parser: op.parser, logger: op.logger}
		symbols, err := single.targetSymbols(ws)
		if err != nil {
			return nil, err
		}
		for _, sym := range symbols {
			renames = append(renames, rename.SymbolRename{Symbol: sym, Replacement: req.NewName})
		}
	}

	session, err := rename.NewSession(ws, op.parser, op.logger, renames, opts)
	if err != nil {
		return nil, err
	}
	res, err := session.ResolveConflicts(ctx)
	if err != nil {
		return nil, err
	}
	return planFromResolution(ws, res, op), nil
}

// batchOptions folds the per-request options into the single set the shared
// session runs with. The flags must agree across the whole batch; the
// allow-lists are unioned.
func batchOptions(requests []types.RenameSymbolRequest) (types.RenameOptions, error) {
	opts := requests[0].Options
	allow := make(map[types.SymbolKey]bool, len(opts.NonConflictSymbols))
	for key := range opts.NonConflictSymbols {
		allow[key] = true
	}
	for _, req := range requests[1:] {
		o := req.Options
		if o.RenameInStrings != opts.RenameInStrings ||
			o.RenameInComments != opts.RenameInComments ||
			o.RenameFile != opts.RenameFile {
			return types.RenameOptions{}, &types.RefactorError{
				Type:    types.InvalidOperation,
				Message: "batch rename requests disagree on rename options",
			}
		}
		for key := range o.NonConflictSymbols {
			allow[key] = true
		}
	}
	if len(allow) > 0 {
		opts.NonConflictSymbols = allow
	}
	return opts, nil
}

// planFromResolution turns a session result into a plan: one minimal change
// per rewritten document, plus the conflict log and any file renames.
func planFromResolution(ws *types.Workspace, res *rename.ConflictResolutionResult, op types.Operation) *types.RefactoringPlan {
	plan := &types.RefactoringPlan{
		Operations:       []types.Operation{op},
		Changes:          make([]types.Change, 0, len(res.DocumentsChanged)),
		FileRenames:      res.FileRenames,
		AffectedFiles:    res.DocumentsChanged,
		RelatedLocations: res.RelatedLocations,
		Reversible:       len(res.FileRenames) == 0,
	}
	for _, docPath := range res.DocumentsChanged {
		oldFile := ws.FindFile(docPath)
		newFile := res.Snapshot.FindFile(docPath)
		if oldFile == nil || newFile == nil {
			continue
		}
		if change, ok := diffChange(docPath, oldFile.Content, newFile.Content, op.Description()); ok {
			plan.Changes = append(plan.Changes, change)
		}
	}
	return plan
}

// diffChange reduces an old/new content pair to the single span that
// actually differs.
func diffChange(file string, oldContent, newContent []byte, description string) (types.Change, bool) {
	prefix := 0
	for prefix < len(oldContent) && prefix < len(newContent) && oldContent[prefix] == newContent[prefix] {
		prefix++
	}
	oldEnd, newEnd := len(oldContent), len(newContent)
	for oldEnd > prefix && newEnd > prefix && oldContent[oldEnd-1] == newContent[newEnd-1] {
		oldEnd--
		newEnd--
	}
	if prefix == oldEnd && prefix == newEnd {
		return types.Change{}, false
	}
	return types.Change{
		File:        file,
		Start:       prefix,
		End:         oldEnd,
		OldText:     string(oldContent[prefix:oldEnd]),
		NewText:     string(newContent[prefix:newEnd]),
		Description: description,
	}, true
}
