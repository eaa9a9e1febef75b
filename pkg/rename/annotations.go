package rename

import (
	"sort"

	"github.com/mamaar/saferename/pkg/types"
)

// DeclarationReference is one captured pre-rename binding of a location: the
// declaring document and byte offset of a symbol the location resolved to
// before any rewrite, plus whether that declaration lives in workspace source
// (as opposed to an imported, export-data-only package).
type DeclarationReference struct {
	File     string
	Offset   int
	IsSource bool
}

// RenameAnnotation is the transient metadata attached to a rewritten token
// for the duration of one session. It carries everything the conflict
// identifier needs to re-validate the location: the original span, what kind
// of reference the token is, and the pre-rename captured references used for
// identity comparison. Annotations never outlive the session.
type RenameAnnotation struct {
	OriginalSpan types.Span

	IsRenameLocation       bool
	IsInvocation           bool
	IsMemberGroupReference bool
	IsPackageNameReference bool
	IsInvalidIdentifier    bool
	IsComplexified         bool

	OriginalText    string
	ReplacementText string

	// References captured before the rename: the declaration locations of
	// every symbol this position resolved to in the original snapshot.
	References []DeclarationReference
}

// AnnotationTable maps current-snapshot spans to their annotations, per
// document. Trees stay untouched; the table is the only side channel, scoped
// to one session and discarded afterwards.
type AnnotationTable struct {
	byFile map[string]map[types.Span]*RenameAnnotation
}

func NewAnnotationTable() *AnnotationTable {
	return &AnnotationTable{byFile: make(map[string]map[types.Span]*RenameAnnotation)}
}

// Add registers ann under the document's current span.
func (t *AnnotationTable) Add(file string, span types.Span, ann *RenameAnnotation) {
	m, ok := t.byFile[file]
	if !ok {
		m = make(map[types.Span]*RenameAnnotation)
		t.byFile[file] = m
	}
	m[span] = ann
}

// Get returns the annotation at span, or nil.
func (t *AnnotationTable) Get(file string, span types.Span) *RenameAnnotation {
	return t.byFile[file][span]
}

// Move re-keys a document's annotations after another rewrite pass shifted
// its spans. adjust maps a pre-pass span to its post-pass span.
func (t *AnnotationTable) Move(file string, adjust func(types.Span) types.Span) {
	old, ok := t.byFile[file]
	if !ok {
		return
	}
	next := make(map[types.Span]*RenameAnnotation, len(old))
	for span, ann := range old {
		next[adjust(span)] = ann
	}
	t.byFile[file] = next
}

// ForFile returns the document's annotated spans in offset order.
func (t *AnnotationTable) ForFile(file string) []types.Span {
	m := t.byFile[file]
	spans := make([]types.Span, 0, len(m))
	for span := range m {
		spans = append(spans, span)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// DropFile strips a document's annotations once it is finalized.
func (t *AnnotationTable) DropFile(file string) {
	delete(t.byFile, file)
}
