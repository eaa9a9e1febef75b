package refactor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/graph"
	"github.com/mamaar/saferename/pkg/types"
)

// Engine is the caller-facing surface of the rename tooling: load a
// workspace, plan renames, inspect the plan, execute it.
type Engine interface {
	LoadWorkspace(path string) (*types.Workspace, error)

	RenameSymbol(ctx context.Context, ws *types.Workspace, req types.RenameSymbolRequest) (*types.RefactoringPlan, error)
	BatchRename(ctx context.Context, ws *types.Workspace, reqs []types.RenameSymbolRequest) (*types.RefactoringPlan, error)

	AnalyzeImpact(ws *types.Workspace, plan *types.RefactoringPlan) (*types.ImpactAnalysis, error)
	ValidateRefactoring(plan *types.RefactoringPlan) error

	ExecutePlan(ws *types.Workspace, plan *types.RefactoringPlan) error
	PreviewPlan(plan *types.RefactoringPlan) (string, error)
}

// DefaultEngine implements Engine on the session-based rename core.
type DefaultEngine struct {
	parser     *analysis.GoParser
	validator  *Validator
	serializer *Serializer
	logger     *slog.Logger
	config     *EngineConfig
}

func CreateEngine(logger *slog.Logger) Engine {
	return CreateEngineWithConfig(logger, DefaultConfig())
}

func CreateEngineWithConfig(logger *slog.Logger, config *EngineConfig) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultEngine{
		parser:     analysis.NewParser(logger),
		validator:  NewValidator(),
		serializer: NewSerializer(logger),
		logger:     logger,
		config:     config,
	}
}

// LoadWorkspace parses the workspace and builds the symbol tables the
// resolvers work from.
func (e *DefaultEngine) LoadWorkspace(path string) (*types.Workspace, error) {
	ws, err := e.parser.ParseWorkspace(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}

	resolver := analysis.NewSymbolResolver(ws, e.parser, e.logger)
	for _, pkg := range ws.Packages {
		if _, err := resolver.BuildSymbolTable(pkg); err != nil {
			return nil, fmt.Errorf("failed to build symbol table for package %s: %w", pkg.Path, err)
		}
	}
	return ws, nil
}

// RenameSymbol plans one symbol rename. Conflicts land in the plan's
// related locations; only internal failures return an error.
func (e *DefaultEngine) RenameSymbol(ctx context.Context, ws *types.Workspace, req types.RenameSymbolRequest) (*types.RefactoringPlan, error) {
	op := &RenameSymbolOperation{Request: req, parser: e.parser, logger: e.logger}
	if err := op.Validate(ws); err != nil {
		return nil, fmt.Errorf("rename operation validation failed: %w", err)
	}
	plan, err := op.ExecuteContext(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rename plan: %w", err)
	}
	impact, err := e.AnalyzeImpact(ws, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze impact: %w", err)
	}
	plan.Impact = impact
	return plan, nil
}

// BatchRename plans several renames as one session, so the conflict
// detection sees every replacement at once.
func (e *DefaultEngine) BatchRename(ctx context.Context, ws *types.Workspace, reqs []types.RenameSymbolRequest) (*types.RefactoringPlan, error) {
	op := &BatchRenameSymbolsOperation{Requests: reqs, parser: e.parser, logger: e.logger}
	if err := op.Validate(ws); err != nil {
		return nil, fmt.Errorf("batch rename validation failed: %w", err)
	}
	plan, err := op.ExecuteContext(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("failed to generate batch rename plan: %w", err)
	}
	impact, err := e.AnalyzeImpact(ws, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze impact: %w", err)
	}
	plan.Impact = impact
	return plan, nil
}

// AnalyzeImpact derives the blast radius of a plan from the import graph:
// the packages owning changed files plus everything that transitively
// imports them, and an issue per conflict in the plan.
func (e *DefaultEngine) AnalyzeImpact(ws *types.Workspace, plan *types.RefactoringPlan) (*types.ImpactAnalysis, error) {
	if plan == nil {
		return nil, &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "cannot analyze a nil plan",
		}
	}

	pg := graph.BuildPackageGraph(ws)
	pkgSet := make(map[string]bool)
	for _, file := range plan.AffectedFiles {
		pkg := ws.FindPackageForFile(file)
		if pkg == nil {
			continue
		}
		pkgSet[pkg.Path] = true
		for _, dep := range pg.TransitiveDependents(pkg.Path) {
			pkgSet[dep.Path] = true
		}
	}

	impact := &types.ImpactAnalysis{
		AffectedFiles: plan.AffectedFiles,
	}
	for pkgPath := range pkgSet {
		impact.AffectedPackages = append(impact.AffectedPackages, pkgPath)
	}
	sort.Strings(impact.AffectedPackages)

	for _, loc := range plan.RelatedLocations {
		if !loc.Type.IsConflict() {
			continue
		}
		severity := types.Warning
		if loc.Type == types.UnresolvableConflict || loc.Type == types.UnresolvedConflict {
			severity = types.Error
		}
		impact.PotentialIssues = append(impact.PotentialIssues, types.Issue{
			Type:        types.IssueNameConflict,
			Description: fmt.Sprintf("%s conflict at %s", loc.Type, loc.Span),
			File:        loc.File,
			Severity:    severity,
		})
	}
	return impact, nil
}

// ValidateRefactoring runs the pre-flight plan check.
func (e *DefaultEngine) ValidateRefactoring(plan *types.RefactoringPlan) error {
	return e.validator.ValidatePlan(plan)
}

// ExecutePlan validates and applies a plan to disk.
func (e *DefaultEngine) ExecutePlan(ws *types.Workspace, plan *types.RefactoringPlan) error {
	if !e.config.SkipValidation {
		if err := e.validator.ValidatePlan(plan); err != nil {
			return err
		}
	}
	if err := e.serializer.ApplyChanges(ws, plan.Changes); err != nil {
		return err
	}
	return e.serializer.ApplyFileRenames(plan.FileRenames)
}

// PreviewPlan renders a plan for human inspection.
func (e *DefaultEngine) PreviewPlan(plan *types.RefactoringPlan) (string, error) {
	if plan == nil {
		return "", &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "cannot preview a nil plan",
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Preview of %d changes:\n", len(plan.Changes))
	for _, change := range plan.Changes {
		fmt.Fprintf(&b, "\n%s [%d:%d]\n", change.File, change.Start, change.End)
		fmt.Fprintf(&b, "  - %s\n", condense(change.OldText))
		fmt.Fprintf(&b, "  + %s\n", condense(change.NewText))
	}
	for _, fr := range plan.FileRenames {
		fmt.Fprintf(&b, "\nrename file %s -> %s\n", fr.OldPath, fr.NewPath)
	}
	if n := conflictCount(plan); n > 0 {
		fmt.Fprintf(&b, "\n%d conflicts:\n", n)
		for _, loc := range plan.RelatedLocations {
			if loc.Type.IsConflict() {
				fmt.Fprintf(&b, "  %s at %s:%s\n", loc.Type, loc.File, loc.Span)
			}
		}
	}
	return b.String(), nil
}

func conflictCount(plan *types.RefactoringPlan) int {
	n := 0
	for _, loc := range plan.RelatedLocations {
		if loc.Type.IsConflict() {
			n++
		}
	}
	return n
}

// condense flattens multi-line change text for one-line preview rows.
func condense(text string) string {
	text = strings.ReplaceAll(text, "\n", "\\n")
	if len(text) > 120 {
		text = text[:117] + "..."
	}
	return text
}
