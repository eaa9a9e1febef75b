package types

import "fmt"

// Span is a half-open byte range [Start, End) within a document.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) Contains(pos int) bool { return pos >= s.Start && pos < s.End }

// Overlaps reports whether the two spans share at least one byte.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

// LocationKind distinguishes how an occurrence of the renamed symbol is used.
type LocationKind int

const (
	ReferenceLocation LocationKind = iota
	DeclarationLocation
	StringOrCommentLocation
)

// RenameLocation is a single occurrence to rewrite: a document, the span of
// the identifier in the ORIGINAL snapshot, and its kind. For occurrences
// inside string literals or comments, ContainingSpan is the span of the whole
// literal or comment. Locations are created by the reference search and never
// mutated afterwards.
type RenameLocation struct {
	File           string
	Span           Span
	Kind           LocationKind
	ContainingSpan Span
}

// IsReference reports whether the location participates in symbol binding at
// all (string/comment occurrences do not).
func (l RenameLocation) IsReference() bool {
	return l.Kind == ReferenceLocation || l.Kind == DeclarationLocation
}

// RelatedLocationType classifies the outcome recorded for a location after
// conflict identification. A location's type only ever moves forward:
// PossiblyResolvableConflict may later become ResolvedReferenceConflict,
// ResolvedNonReferenceConflict, or UnresolvedConflict, never the other way.
type RelatedLocationType int

const (
	NoConflict RelatedLocationType = iota
	ResolvedReferenceConflict
	ResolvedNonReferenceConflict
	PossiblyResolvableConflict
	UnresolvableConflict
	UnresolvedConflict
)

func (t RelatedLocationType) String() string {
	switch t {
	case NoConflict:
		return "NoConflict"
	case ResolvedReferenceConflict:
		return "ResolvedReferenceConflict"
	case ResolvedNonReferenceConflict:
		return "ResolvedNonReferenceConflict"
	case PossiblyResolvableConflict:
		return "PossiblyResolvableConflict"
	case UnresolvableConflict:
		return "UnresolvableConflict"
	case UnresolvedConflict:
		return "UnresolvedConflict"
	default:
		return "Unknown"
	}
}

// IsConflict reports whether the outcome still represents a problem the
// caller should see.
func (t RelatedLocationType) IsConflict() bool {
	return t == PossiblyResolvableConflict || t == UnresolvableConflict || t == UnresolvedConflict
}

// RelatedLocation is one entry of the session's append-only outcome log.
// Span is always in ORIGINAL snapshot coordinates; ComplexifiedSpan, when
// non-zero, is the span of the expanded statement in the current snapshot.
type RelatedLocation struct {
	File             string
	Span             Span
	Type             RelatedLocationType
	IsReference      bool
	ComplexifiedSpan Span
}

// RenameOptions are the caller-facing switches of a rename session.
type RenameOptions struct {
	RenameInStrings  bool
	RenameInComments bool
	RenameFile       bool

	// NonConflictSymbols is an allow-list of symbol keys that must never be
	// reported as conflicting with the rename, e.g. symbols the caller is
	// intentionally merging.
	NonConflictSymbols map[SymbolKey]bool
}
