package rename

import (
	"context"
	"fmt"
	"sync"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/types"
)

// RewriteParams is everything a language service needs to rewrite one
// document during one phase.
type RewriteParams struct {
	// Original is the untouched base snapshot; Snapshot is the session's
	// current snapshot containing the document's latest version.
	Original *types.Workspace
	Snapshot *types.Workspace
	Document *types.File

	// Info holds the document's rename and string/comment contexts, spans in
	// ORIGINAL snapshot coordinates.
	Info *DocumentRenameInfo

	// ApplyRenames is set on the document's first rewrite pass; later passes
	// only expand ComplexifySpans.
	ApplyRenames bool

	// ComplexifySpans are original-coordinate spans of conflict locations to
	// expand into their explicit form.
	ComplexifySpans []types.Span

	Tracker     *RenamedSpansTracker
	Annotations *AnnotationTable
	Parser      *analysis.GoParser
	Resolver    *analysis.SymbolResolver
}

// RewriteResult is the outcome of one per-document rewrite.
type RewriteResult struct {
	File    *types.File
	Changed bool
}

// LanguageService is the per-language capability behind the engine. The
// orchestrator and conflict identifier are language-agnostic; everything that
// must understand syntax goes through this interface. Implementations form a
// small closed set selected by language identity.
type LanguageService interface {
	// IsIdentifierValid reports whether text is a legal identifier.
	IsIdentifierValid(text string) bool

	// AnnotateAndRename rewrites one document: replaces rename-location
	// tokens, expands complexification candidates, rewrites string/comment
	// occurrences, and annotates every candidate conflict location. It
	// records its span deltas in the tracker and re-keys annotations.
	AnnotateAndRename(ctx context.Context, p *RewriteParams) (*RewriteResult, error)

	// LocalVariableConflict reports whether a local declaration of newName
	// could capture the identifier at span. Conservative: false positives
	// are acceptable.
	LocalVariableConflict(ws *types.Workspace, file string, span types.Span, newName string) bool

	// GetExpansionTargetForLocation returns the span of the smallest
	// enclosing statement that, expanded, could make the binding at span
	// explicit. ok is false when no expansion can help, which makes the
	// conflict unresolvable rather than merely unresolved.
	GetExpansionTargetForLocation(original *types.Workspace, resolver *analysis.SymbolResolver, file string, span types.Span) (target types.Span, ok bool)

	// Simplify removes complexifications that turned out unnecessary once
	// the rename is final.
	Simplify(ctx context.Context, p *RewriteParams) (*RewriteResult, error)

	// DeclarationConflicts checks one renamed symbol's declaration against
	// everything visible in its updated scope.
	DeclarationConflicts(ctx context.Context, p *ConflictCheckParams) ([]types.RelatedLocation, error)

	// ImplicitUsageConflicts checks whether the rename breaks implicit
	// dispatch, e.g. interface satisfaction of the receiver type.
	ImplicitUsageConflicts(ctx context.Context, p *ConflictCheckParams) ([]types.RelatedLocation, error)
}

// ConflictCheckParams carries the inputs of the post-convergence per-symbol
// checks.
type ConflictCheckParams struct {
	Original    *types.Workspace
	Snapshot    *types.Workspace
	Symbol      *types.Symbol
	Replacement string
	Options     types.RenameOptions
	Tracker     *RenamedSpansTracker
	Parser      *analysis.GoParser
	Resolver    *analysis.SymbolResolver
}

var (
	servicesMu sync.RWMutex
	services   = make(map[string]LanguageService)
)

// RegisterLanguageService installs the service for a language identity.
func RegisterLanguageService(language string, service LanguageService) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	services[language] = service
}

// LookupLanguageService selects the service for a language identity.
func LookupLanguageService(language string) (LanguageService, error) {
	servicesMu.RLock()
	defer servicesMu.RUnlock()
	if s, ok := services[language]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no language service registered for %q", language)
}

func init() {
	RegisterLanguageService("go", &GoLanguageService{})
}
