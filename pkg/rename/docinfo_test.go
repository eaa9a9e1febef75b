package rename

import (
	"errors"
	"testing"

	"github.com/mamaar/saferename/pkg/types"
)

func renameContext(span types.Span, old, repl string) LocationRenameContext {
	return LocationRenameContext{
		Location: types.RenameLocation{
			File: "a.go",
			Span: span,
			Kind: types.ReferenceLocation,
		},
		OriginalText:    old,
		ReplacementText: repl,
	}
}

func TestAddContextRejectsDisagreeingDuplicate(t *testing.T) {
	info := NewDocumentRenameInfo("a.go")
	span := types.Span{Start: 10, End: 13}

	if err := info.AddContext(renameContext(span, "foo", "bar")); err != nil {
		t.Fatalf("first context: %v", err)
	}
	// The same span claimed with the same replacement is harmless.
	if err := info.AddContext(renameContext(span, "foo", "bar")); err != nil {
		t.Fatalf("agreeing duplicate: %v", err)
	}

	err := info.AddContext(renameContext(span, "foo", "baz"))
	var cce *types.ConflictContextError
	if !errors.As(err, &cce) {
		t.Fatalf("disagreeing duplicate: got %v, want ConflictContextError", err)
	}
	if cce.Existing != "bar" || cce.Replacement != "baz" {
		t.Errorf("error names wrong contexts: existing %q, replacement %q", cce.Existing, cce.Replacement)
	}
}

func TestAddStringOrCommentDuplicates(t *testing.T) {
	info := NewDocumentRenameInfo("a.go")
	containing := types.Span{Start: 100, End: 130}
	sub := types.Span{Start: 108, End: 111}

	if err := info.AddStringOrComment(containing, sub, "bar"); err != nil {
		t.Fatalf("first subspan: %v", err)
	}
	if err := info.AddStringOrComment(containing, sub, "bar"); err != nil {
		t.Fatalf("agreeing duplicate: %v", err)
	}
	err := info.AddStringOrComment(containing, sub, "qux")
	var cce *types.ConflictContextError
	if !errors.As(err, &cce) {
		t.Fatalf("disagreeing subspan: got %v, want ConflictContextError", err)
	}
}

func TestSortedSpansAreOrdered(t *testing.T) {
	info := NewDocumentRenameInfo("a.go")
	for _, start := range []int{50, 10, 30} {
		span := types.Span{Start: start, End: start + 3}
		if err := info.AddContext(renameContext(span, "foo", "bar")); err != nil {
			t.Fatal(err)
		}
		if err := info.AddStringOrComment(types.Span{Start: 200, End: 300}, types.Span{Start: 200 + start, End: 203 + start}, "bar"); err != nil {
			t.Fatal(err)
		}
	}

	spans := info.SortedContextSpans()
	for i := 1; i < len(spans); i++ {
		if spans[i-1].Start >= spans[i].Start {
			t.Fatalf("context spans out of order: %v", spans)
		}
	}
	subs := info.SortedSubSpans()
	for i := 1; i < len(subs); i++ {
		if subs[i-1].Span.Start >= subs[i].Span.Start {
			t.Fatalf("subspans out of order: %v", subs)
		}
	}
}
