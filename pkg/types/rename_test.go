package types

import "testing"

func TestSpanOverlaps(t *testing.T) {
	cases := []struct {
		a, b Span
		want bool
	}{
		{Span{0, 5}, Span{5, 10}, false}, // half-open, touching is not overlap
		{Span{0, 5}, Span{4, 10}, true},
		{Span{4, 10}, Span{0, 5}, true},
		{Span{0, 10}, Span{3, 4}, true},
		{Span{3, 4}, Span{0, 10}, true},
		{Span{0, 0}, Span{0, 1}, false}, // empty span overlaps nothing
	}
	for _, c := range cases {
		if got := c.a.Overlaps(c.b); got != c.want {
			t.Errorf("%v.Overlaps(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRelatedLocationTypeIsConflict(t *testing.T) {
	conflicts := []RelatedLocationType{PossiblyResolvableConflict, UnresolvableConflict, UnresolvedConflict}
	for _, typ := range conflicts {
		if !typ.IsConflict() {
			t.Errorf("%v should be a conflict", typ)
		}
	}
	clean := []RelatedLocationType{NoConflict, ResolvedReferenceConflict, ResolvedNonReferenceConflict}
	for _, typ := range clean {
		if typ.IsConflict() {
			t.Errorf("%v should not be a conflict", typ)
		}
	}
}

func TestRenameLocationIsReference(t *testing.T) {
	if !(RenameLocation{Kind: ReferenceLocation}).IsReference() {
		t.Error("reference location must be a reference")
	}
	if !(RenameLocation{Kind: DeclarationLocation}).IsReference() {
		t.Error("declaration location must be a reference")
	}
	if (RenameLocation{Kind: StringOrCommentLocation}).IsReference() {
		t.Error("string/comment occurrence must not be a reference")
	}
}
