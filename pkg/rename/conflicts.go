package rename

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/types"
)

// conflictIdentifier re-resolves every annotated location of the rewritten
// snapshot and compares what it binds to now against what the same position
// bound to before the rename.
type conflictIdentifier struct {
	original *types.Workspace
	snapshot *types.Workspace

	resolver    *analysis.SymbolResolver
	parser      *analysis.GoParser
	tracker     *RenamedSpansTracker
	annotations *AnnotationTable
	service     LanguageService
	opts        types.RenameOptions
}

// locationOutcome is the per-location verdict of one identification round, in
// current-snapshot coordinates.
type locationOutcome struct {
	File         string
	Span         types.Span
	OriginalSpan types.Span
	Type         types.RelatedLocationType

	// ExpansionTarget is set for possibly-resolvable outcomes: the span to
	// complexify on the next phase, in original coordinates.
	ExpansionTarget    types.Span
	HasExpansionTarget bool
}

// identifyAll assesses every annotated location of the given documents.
// Documents are processed in parallel; the parser serializes the lazy
// type-checking that resolution triggers, and results are joined before the
// phase tally.
func (ci *conflictIdentifier) identifyAll(ctx context.Context, documents []string) ([]locationOutcome, error) {
	results := make([][]locationOutcome, len(documents))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range documents {
		g.Go(func() error {
			outcomes, err := ci.identifyDocument(gctx, doc)
			if err != nil {
				return err
			}
			results[i] = outcomes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []locationOutcome
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

func (ci *conflictIdentifier) identifyDocument(ctx context.Context, file string) ([]locationOutcome, error) {
	var outcomes []locationOutcome
	for _, span := range ci.annotations.ForFile(file) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ann := ci.annotations.Get(file, span)
		if ann == nil {
			continue
		}
		outcomes = append(outcomes, ci.assess(file, span, ann))
	}
	return outcomes, nil
}

// assess runs the decision table for one annotated location.
func (ci *conflictIdentifier) assess(file string, span types.Span, ann *RenameAnnotation) locationOutcome {
	out := locationOutcome{File: file, Span: span, OriginalSpan: ann.OriginalSpan}

	conflicted := ci.isConflicting(file, span, ann)

	if !conflicted {
		if ann.IsComplexified {
			if ann.IsRenameLocation {
				out.Type = types.ResolvedReferenceConflict
			} else {
				out.Type = types.ResolvedNonReferenceConflict
			}
		} else {
			out.Type = types.NoConflict
		}
		return out
	}

	if ann.IsComplexified {
		// Expansion already happened and the location still misbinds.
		out.Type = types.UnresolvedConflict
		return out
	}
	if target, ok := ci.service.GetExpansionTargetForLocation(ci.original, ci.resolver, file, ann.OriginalSpan); ok {
		out.Type = types.PossiblyResolvableConflict
		out.ExpansionTarget = target
		out.HasExpansionTarget = true
	} else {
		out.Type = types.UnresolvableConflict
	}
	return out
}

func (ci *conflictIdentifier) isConflicting(file string, span types.Span, ann *RenameAnnotation) bool {
	// Rule 1: illegal replacement text conflicts regardless of binding.
	if ann.IsInvalidIdentifier {
		return true
	}

	// Rule 2: resolve what the position binds to now. A complexified span
	// covers the whole qualified form; its binding identity lives in the
	// trailing identifier. Invocations resolve through the enclosing call so
	// overload-style misbinding is visible.
	resolveSpan := span
	if text := ci.currentText(file, span); strings.Contains(text, ".") {
		dot := strings.LastIndex(text, ".")
		resolveSpan = types.Span{Start: span.Start + dot + 1, End: span.End}
	}
	objs, _, err := ci.resolver.ObjectsAtSpan(ci.snapshot, file, resolveSpan)
	if ann.IsInvocation {
		if callObjs, cerr := ci.resolver.ObjectsForInvocation(ci.snapshot, file, span); cerr == nil && len(callObjs) > 0 {
			objs, err = callObjs, nil
		}
	}
	if err != nil {
		return true
	}

	// Rule 3: caller-supplied allow-list short-circuits everything.
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if ci.allowListed(analysis.ObjectKey(ci.snapshot, obj)) {
			return false
		}
	}

	// Rule 4: compare against the captured pre-rename reference set.
	if ann.IsPackageNameReference {
		return false
	}

	newRefs := declarationReferences(ci.snapshot, objs)

	if ann.IsMemberGroupReference {
		if len(ann.References) == 0 {
			return false
		}
		for _, nr := range newRefs {
			for _, pr := range ann.References {
				if ci.referenceMatches(pr, nr) {
					return false
				}
			}
		}
		return true
	}

	if !ann.IsRenameLocation && len(ann.References) > 1 && len(newRefs) == 1 {
		// The rename itself collapsed a prior ambiguity.
		return false
	}

	if len(newRefs) != len(ann.References) {
		// Previously-erroneous code that now binds is not a regression.
		if len(ann.References) == 0 && len(newRefs) > 0 {
			return false
		}
		return true
	}

	for i := range newRefs {
		if !ci.referenceMatches(ann.References[i], newRefs[i]) {
			return true
		}
	}

	// Rule 5: the shadowing heuristic catches capture that position-matching
	// cannot, e.g. a renamed outer binding a nested scope now intercepts.
	// Conservative by construction.
	if !ann.IsInvocation && !ann.IsComplexified {
		name := ci.currentText(file, span)
		if name != "" && !strings.Contains(name, ".") &&
			ci.service.LocalVariableConflict(ci.snapshot, file, span, name) {
			return true
		}
	}
	return false
}

// allowListed reports whether a resolved object matches an entry of the
// caller's NonConflictSymbols set. Allow-list keys are in original
// coordinates and may name a symbol this very session renamed, so matching
// falls back to tracker-adjusted declaration position with the name ignored.
func (ci *conflictIdentifier) allowListed(key types.SymbolKey) bool {
	if len(ci.opts.NonConflictSymbols) == 0 {
		return false
	}
	if ci.opts.NonConflictSymbols[key] {
		return true
	}
	for allow := range ci.opts.NonConflictSymbols {
		if allow.Package != key.Package || allow.Kind != key.Kind || allow.File != key.File {
			continue
		}
		if ci.tracker.AdjustPosition(allow.File, allow.Offset) == key.Offset {
			return true
		}
	}
	return false
}

// referenceMatches compares one captured pre-rename declaration reference
// against a post-rename one. Source declarations must sit at the tracker-
// adjusted position of the old declaration; a source declaration that became
// non-source (or vice versa) is a mismatch. Two non-source declarations are
// accepted: export-data symbols cannot be renamed, so the binding target is
// the same frozen declaration.
func (ci *conflictIdentifier) referenceMatches(prior, now DeclarationReference) bool {
	if prior.IsSource != now.IsSource {
		return false
	}
	if !prior.IsSource {
		return true
	}
	if prior.File != now.File {
		return false
	}
	return ci.tracker.AdjustPosition(prior.File, prior.Offset) == now.Offset
}

func (ci *conflictIdentifier) currentText(file string, span types.Span) string {
	doc := ci.snapshot.FindFile(file)
	if doc == nil || span.Start < 0 || span.End > len(doc.Content) {
		return ""
	}
	return string(doc.Content[span.Start:span.End])
}
