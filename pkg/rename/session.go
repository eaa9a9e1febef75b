package rename

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/graph"
	"github.com/mamaar/saferename/pkg/types"
)

// SymbolRename pairs one symbol with its replacement text.
type SymbolRename struct {
	Symbol      *types.Symbol
	Replacement string
}

// ConflictResolutionResult is the outcome of a whole session: the rewritten
// snapshot, the complete conflict log, and per-symbol replacement validity.
// Conflicts are first-class results; the session only fails on internal
// errors, never on conflicts.
type ConflictResolutionResult struct {
	Snapshot         *types.Workspace
	RelatedLocations []types.RelatedLocation
	ReplacementValid map[types.SymbolKey]bool
	DocumentsChanged []string
	FileRenames      []types.FileRename
}

// locationKey identifies a conflict-candidate location by its document and
// ORIGINAL span, which stays stable while the document is rewritten.
type locationKey struct {
	File string
	Span types.Span
}

// MutableConflictResolution is the session-internal accumulator. Rewrite
// results from the per-document passes are merged into it only on the
// orchestrating goroutine.
type MutableConflictResolution struct {
	snapshot    *types.Workspace
	tracker     *RenamedSpansTracker
	annotations *AnnotationTable

	related     map[locationKey]types.RelatedLocation
	extra       []types.RelatedLocation
	changedDocs map[string]bool
	valid       map[types.SymbolKey]bool
	fileRenames []types.FileRename
}

func newMutableConflictResolution(snapshot *types.Workspace) *MutableConflictResolution {
	return &MutableConflictResolution{
		snapshot:    snapshot,
		tracker:     NewRenamedSpansTracker(),
		annotations: NewAnnotationTable(),
		related:     make(map[locationKey]types.RelatedLocation),
		changedDocs: make(map[string]bool),
		valid:       make(map[types.SymbolKey]bool),
	}
}

func (m *MutableConflictResolution) applyRewrite(parser *analysis.GoParser, result *RewriteResult) {
	if !result.Changed {
		return
	}
	if pkg := m.snapshot.ReplaceFile(result.File); pkg != nil {
		parser.InvalidateTypes(m.snapshot, pkg)
	}
	m.changedDocs[result.File.Path] = true
}

func (m *MutableConflictResolution) result() *ConflictResolutionResult {
	locs := make([]types.RelatedLocation, 0, len(m.related)+len(m.extra))
	for _, loc := range m.related {
		if loc.Type == types.NoConflict {
			continue
		}
		locs = append(locs, loc)
	}
	locs = append(locs, m.extra...)
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].File != locs[j].File {
			return locs[i].File < locs[j].File
		}
		return locs[i].Span.Start < locs[j].Span.Start
	})

	docs := make([]string, 0, len(m.changedDocs))
	for doc := range m.changedDocs {
		docs = append(docs, doc)
	}
	sort.Strings(docs)

	return &ConflictResolutionResult{
		Snapshot:         m.snapshot,
		RelatedLocations: locs,
		ReplacementValid: m.valid,
		DocumentsChanged: docs,
		FileRenames:      m.fileRenames,
	}
}

// Session runs one conflict-resolving rename over a workspace snapshot.
type Session struct {
	original *types.Workspace
	parser   *analysis.GoParser
	resolver *analysis.SymbolResolver
	service  LanguageService
	logger   *slog.Logger

	renames []SymbolRename
	opts    types.RenameOptions
}

// NewSession prepares a rename session. The workspace is treated as the
// immutable base snapshot; all rewriting happens on an internal clone.
func NewSession(ws *types.Workspace, parser *analysis.GoParser, logger *slog.Logger, renames []SymbolRename, opts types.RenameOptions) (*Session, error) {
	if len(renames) == 0 {
		return nil, &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "rename session needs at least one symbol",
		}
	}
	service, err := LookupLanguageService("go")
	if err != nil {
		return nil, types.Fatal("create rename session", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		original: ws,
		parser:   parser,
		resolver: analysis.NewSymbolResolver(ws, parser, logger),
		service:  service,
		logger:   logger,
		renames:  renames,
		opts:     opts,
	}, nil
}

// ResolveConflicts drives the whole pipeline: location gathering, the phased
// rewrite loop per package in dependency order, simplification, the
// post-convergence symbol checks, and the final downgrade of undecided
// outcomes.
func (s *Session) ResolveConflicts(ctx context.Context) (*ConflictResolutionResult, error) {
	res := newMutableConflictResolution(s.original.Clone())

	for _, r := range s.renames {
		res.valid[r.Symbol.Key()] = s.service.IsIdentifierValid(r.Replacement)
	}

	docInfos, declSpans, err := s.gatherLocations()
	if err != nil {
		return nil, err
	}

	order, err := s.packageOrder(docInfos)
	if err != nil {
		return nil, err
	}

	for _, pkgDocs := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.processPackage(ctx, res, pkgDocs, docInfos, declSpans); err != nil {
			return nil, err
		}
	}

	if err := s.symbolChecks(ctx, res); err != nil {
		return nil, err
	}

	// Whatever is still only possibly resolvable got its chance; the phase
	// loop makes no further attempts.
	for key, loc := range res.related {
		if loc.Type == types.PossiblyResolvableConflict {
			loc.Type = types.UnresolvedConflict
			res.related[key] = loc
		}
	}

	if s.opts.RenameFile {
		s.planFileRenames(res)
	}

	return res.result(), nil
}

// gatherLocations finds every rename location of every symbol and aggregates
// them per document. A span claimed twice with different replacement text is
// fatal.
func (s *Session) gatherLocations() (map[string]*DocumentRenameInfo, map[locationKey]bool, error) {
	docInfos := make(map[string]*DocumentRenameInfo)
	declSpans := make(map[locationKey]bool)

	for _, r := range s.renames {
		locations, err := s.resolver.FindRenameLocations(s.original, r.Symbol, s.opts)
		if err != nil {
			return nil, nil, types.Fatal("find rename locations", err)
		}
		key := r.Symbol.Key()
		for _, loc := range locations {
			info, ok := docInfos[loc.File]
			if !ok {
				info = NewDocumentRenameInfo(loc.File)
				docInfos[loc.File] = info
			}
			if loc.Kind == types.StringOrCommentLocation {
				if err := info.AddStringOrComment(loc.ContainingSpan, loc.Span, r.Replacement); err != nil {
					return nil, nil, types.Fatal("aggregate rename contexts", err)
				}
				continue
			}
			if loc.Kind == types.DeclarationLocation {
				declSpans[locationKey{File: loc.File, Span: loc.Span}] = true
			}
			err := info.AddContext(LocationRenameContext{
				Location:        loc,
				OriginalText:    r.Symbol.Name,
				ReplacementText: r.Replacement,
				SymbolKey:       key,
			})
			if err != nil {
				return nil, nil, types.Fatal("aggregate rename contexts", err)
			}
		}
	}
	return docInfos, declSpans, nil
}

// packageOrder partitions the affected documents by package and arranges the
// packages dependency-first, so a dependent is only processed once its
// dependencies' renamed shape is frozen.
func (s *Session) packageOrder(docInfos map[string]*DocumentRenameInfo) ([][]string, error) {
	byPackage := make(map[string][]string)
	var orphans []string
	for doc := range docInfos {
		pkg := s.original.FindPackageForFile(doc)
		if pkg == nil {
			orphans = append(orphans, doc)
			continue
		}
		byPackage[pkg.Path] = append(byPackage[pkg.Path], doc)
	}

	pg := graph.BuildPackageGraph(s.original)
	sorted, err := pg.RenameOrder()
	if err != nil {
		return nil, types.Fatal("order packages", err)
	}

	var order [][]string
	for _, node := range sorted {
		docs, ok := byPackage[node.Path]
		if !ok {
			continue
		}
		sort.Strings(docs)
		order = append(order, docs)
		delete(byPackage, node.Path)
	}
	// Packages the graph missed plus package-less documents go last.
	var rest []string
	for _, docs := range byPackage {
		rest = append(rest, docs...)
	}
	rest = append(rest, orphans...)
	if len(rest) > 0 {
		sort.Strings(rest)
		order = append(order, rest)
	}
	return order, nil
}

// processPackage runs the phased rewrite loop over one package's documents,
// then simplifies and freezes them.
func (s *Session) processPackage(ctx context.Context, res *MutableConflictResolution, docs []string, docInfos map[string]*DocumentRenameInfo, declSpans map[locationKey]bool) error {
	working := append([]string(nil), docs...)
	renamedDocs := make(map[string]bool)

	// complexSet maps a conflicted location to the enclosing statement the
	// expansion reports, both in original coordinates. Locations proven
	// unresolvable, or still failing after full expansion, are excluded from
	// all further attempts.
	complexSet := make(map[locationKey]types.Span)
	excluded := make(map[locationKey]bool)

	ci := &conflictIdentifier{
		original:    s.original,
		snapshot:    res.snapshot,
		resolver:    s.resolver,
		parser:      s.parser,
		tracker:     res.tracker,
		annotations: res.annotations,
		service:     s.service,
		opts:        s.opts,
	}

	for phase := 0; phase < 4 && len(working) > 0; phase++ {
		expand := s.spansToExpand(phase, complexSet, declSpans)

		for _, docPath := range working {
			doc := res.snapshot.FindFile(docPath)
			if doc == nil {
				continue
			}
			result, err := s.service.AnnotateAndRename(ctx, &RewriteParams{
				Original:        s.original,
				Snapshot:        res.snapshot,
				Document:        doc,
				Info:            docInfos[docPath],
				ApplyRenames:    !renamedDocs[docPath],
				ComplexifySpans: expand[docPath],
				Tracker:         res.tracker,
				Annotations:     res.annotations,
				Parser:          s.parser,
				Resolver:        s.resolver,
			})
			if err != nil {
				return types.Fatal("rewrite document", err)
			}
			renamedDocs[docPath] = true
			res.applyRewrite(s.parser, result)
		}

		outcomes, err := ci.identifyAll(ctx, working)
		if err != nil {
			return types.Fatal("identify conflicts", err)
		}

		conflictedDocs := make(map[string]bool)
		resolvable := 0
		for _, out := range outcomes {
			key := locationKey{File: out.File, Span: out.OriginalSpan}
			loc := types.RelatedLocation{
				File:        out.File,
				Span:        out.OriginalSpan,
				Type:        out.Type,
				IsReference: !declSpans[key],
			}
			// An expanded location also reports where its qualified statement
			// sits now.
			if ann := res.annotations.Get(out.File, out.Span); ann != nil && ann.IsComplexified {
				if target, ok := complexSet[key]; ok {
					loc.ComplexifiedSpan = res.tracker.AdjustSpan(out.File, target)
				} else if out.HasExpansionTarget {
					loc.ComplexifiedSpan = res.tracker.AdjustSpan(out.File, out.ExpansionTarget)
				}
			}
			res.related[key] = loc
			if !out.Type.IsConflict() {
				delete(complexSet, key)
				continue
			}
			conflictedDocs[out.File] = true
			switch out.Type {
			case types.PossiblyResolvableConflict:
				if !excluded[key] {
					complexSet[key] = out.ExpansionTarget
					resolvable++
				}
			case types.UnresolvableConflict:
				excluded[key] = true
				delete(complexSet, key)
			case types.UnresolvedConflict:
				if phase >= 2 {
					// Full expansion did not fix it; stop trying.
					excluded[key] = true
					delete(complexSet, key)
				}
			}
		}

		if resolvable == 0 && len(complexSet) == 0 {
			break
		}
		if phase == 0 && !s.anyReference(complexSet, declSpans) {
			// Nothing reference-shaped to expand first; phase 1 would be a
			// no-op, so skip straight to expanding everything.
			phase++
		}

		// Documents with neither a pending rewrite nor a live conflict drop
		// out of the next phase.
		next := working[:0]
		for _, docPath := range working {
			if conflictedDocs[docPath] || !renamedDocs[docPath] {
				next = append(next, docPath)
			}
		}
		working = next
	}

	return s.finalizePackage(ctx, res, docs, docInfos)
}

// spansToExpand selects the complexification set for a phase: nothing in
// phase 0, reference locations in phase 1, everything afterwards. The rewriter
// qualifies the conflicted token itself, so the spans handed over are the
// tokens' original identifier spans, grouped per document.
func (s *Session) spansToExpand(phase int, complexSet map[locationKey]types.Span, declSpans map[locationKey]bool) map[string][]types.Span {
	expand := make(map[string][]types.Span)
	if phase == 0 {
		return expand
	}
	for key := range complexSet {
		if phase == 1 && declSpans[key] {
			continue
		}
		expand[key.File] = append(expand[key.File], key.Span)
	}
	for _, spans := range expand {
		sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	}
	return expand
}

func (s *Session) anyReference(complexSet map[locationKey]types.Span, declSpans map[locationKey]bool) bool {
	for key := range complexSet {
		if !declSpans[key] {
			return true
		}
	}
	return false
}

// finalizePackage removes now-redundant qualifications from every changed
// document and strips its annotations, freezing the package's shape for the
// packages that depend on it.
func (s *Session) finalizePackage(ctx context.Context, res *MutableConflictResolution, docs []string, docInfos map[string]*DocumentRenameInfo) error {
	for _, docPath := range docs {
		if !res.changedDocs[docPath] {
			res.annotations.DropFile(docPath)
			continue
		}
		doc := res.snapshot.FindFile(docPath)
		if doc == nil {
			continue
		}
		result, err := s.service.Simplify(ctx, &RewriteParams{
			Original:    s.original,
			Snapshot:    res.snapshot,
			Document:    doc,
			Info:        docInfos[docPath],
			Tracker:     res.tracker,
			Annotations: res.annotations,
			Parser:      s.parser,
			Resolver:    s.resolver,
		})
		if err != nil {
			return types.Fatal("simplify document", err)
		}
		res.applyRewrite(s.parser, result)
		res.annotations.DropFile(docPath)
	}
	return nil
}

// symbolChecks runs the once-per-symbol detections that only make sense
// after every package has converged: implicit-usage breakage and declaration
// clashes visible from the symbol's updated scope.
func (s *Session) symbolChecks(ctx context.Context, res *MutableConflictResolution) error {
	for _, r := range s.renames {
		p := &ConflictCheckParams{
			Original:    s.original,
			Snapshot:    res.snapshot,
			Symbol:      r.Symbol,
			Replacement: r.Replacement,
			Options:     s.opts,
			Tracker:     res.tracker,
			Parser:      s.parser,
			Resolver:    s.resolver,
		}

		implicit, err := s.service.ImplicitUsageConflicts(ctx, p)
		if err != nil {
			return types.Fatal("implicit usage conflicts", err)
		}
		res.extra = append(res.extra, implicit...)

		decls, err := s.service.DeclarationConflicts(ctx, p)
		if err != nil {
			return types.Fatal("declaration conflicts", err)
		}
		res.extra = append(res.extra, decls...)
	}
	return nil
}

// planFileRenames records a file rename for every symbol whose single
// declaring file carries the symbol's old name.
func (s *Session) planFileRenames(res *MutableConflictResolution) {
	seen := make(map[string]bool)
	for _, r := range s.renames {
		old := r.Symbol.File
		if old == "" || seen[old] {
			continue
		}
		base := filepath.Base(old)
		if !strings.EqualFold(strings.TrimSuffix(base, ".go"), r.Symbol.Name) {
			continue
		}
		seen[old] = true
		res.fileRenames = append(res.fileRenames, types.FileRename{
			OldPath: old,
			NewPath: filepath.Join(filepath.Dir(old), strings.ToLower(r.Replacement)+".go"),
		})
	}
	sort.Slice(res.fileRenames, func(i, j int) bool {
		return res.fileRenames[i].OldPath < res.fileRenames[j].OldPath
	})
}
