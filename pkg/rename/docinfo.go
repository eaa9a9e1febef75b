package rename

import (
	"sort"

	"github.com/mamaar/saferename/pkg/types"
)

// LocationRenameContext pairs one rename location with its effective
// replacement text and the symbol it belongs to. When several symbols are
// renamed in one session, contexts from all of them land in the same
// per-document aggregation.
type LocationRenameContext struct {
	Location        types.RenameLocation
	OriginalText    string
	ReplacementText string
	SymbolKey       types.SymbolKey
}

// DocumentRenameInfo aggregates everything the rewriter must do to one
// document: identifier rename contexts keyed by span, and string/comment
// subspan replacements keyed by their containing literal or comment.
//
// Invariant: a span carries at most one rename context. A second context for
// the same span with different replacement text is an invariant violation and
// fails the session; string/comment subspans tolerate duplicates only when
// the replacement text agrees.
type DocumentRenameInfo struct {
	Path     string
	Contexts map[types.Span]LocationRenameContext

	// containing span -> subspan -> replacement text
	StringOrComment map[types.Span]map[types.Span]string
}

func NewDocumentRenameInfo(path string) *DocumentRenameInfo {
	return &DocumentRenameInfo{
		Path:            path,
		Contexts:        make(map[types.Span]LocationRenameContext),
		StringOrComment: make(map[types.Span]map[types.Span]string),
	}
}

// AddContext registers a rename context for an identifier span.
func (d *DocumentRenameInfo) AddContext(ctx LocationRenameContext) error {
	span := ctx.Location.Span
	if existing, ok := d.Contexts[span]; ok {
		if existing.ReplacementText == ctx.ReplacementText {
			return nil
		}
		return &types.ConflictContextError{
			File:        d.Path,
			Span:        span,
			Replacement: ctx.ReplacementText,
			Existing:    existing.ReplacementText,
		}
	}
	d.Contexts[span] = ctx
	return nil
}

// AddStringOrComment registers a subspan replacement inside a string literal
// or comment.
func (d *DocumentRenameInfo) AddStringOrComment(containing, sub types.Span, replacement string) error {
	subs, ok := d.StringOrComment[containing]
	if !ok {
		subs = make(map[types.Span]string)
		d.StringOrComment[containing] = subs
	}
	if existing, ok := subs[sub]; ok {
		if existing == replacement {
			return nil
		}
		return &types.ConflictContextError{
			File:        d.Path,
			Span:        sub,
			Replacement: replacement,
			Existing:    existing,
		}
	}
	subs[sub] = replacement
	return nil
}

// SortedContextSpans returns the identifier spans in offset order.
func (d *DocumentRenameInfo) SortedContextSpans() []types.Span {
	spans := make([]types.Span, 0, len(d.Contexts))
	for span := range d.Contexts {
		spans = append(spans, span)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// SortedSubSpans flattens the string/comment map into offset-ordered
// (subspan, replacement) pairs.
func (d *DocumentRenameInfo) SortedSubSpans() []struct {
	Span        types.Span
	Replacement string
} {
	var out []struct {
		Span        types.Span
		Replacement string
	}
	for _, subs := range d.StringOrComment {
		for span, repl := range subs {
			out = append(out, struct {
				Span        types.Span
				Replacement string
			}{span, repl})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}
