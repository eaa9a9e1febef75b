package rename

import (
	"sort"

	"github.com/mamaar/saferename/pkg/types"
)

// SpanDelta records one rewrite: the span of the replaced text in the
// document version the rewrite was applied to, and the span of the
// replacement in the version it produced.
type SpanDelta struct {
	Old types.Span
	New types.Span
}

// RenamedSpansTracker maps positions of the original snapshot to positions in
// the current, possibly multiply-rewritten snapshot. Each rewrite pass
// appends its deltas; the tracker composes passes in order and is never reset
// during a session.
type RenamedSpansTracker struct {
	passes map[string][][]SpanDelta // file -> chronological passes
}

func NewRenamedSpansTracker() *RenamedSpansTracker {
	return &RenamedSpansTracker{passes: make(map[string][][]SpanDelta)}
}

// AppendPass records the deltas of one rewrite of file. The deltas must be
// expressed in the coordinates of the document version the pass rewrote, and
// must not overlap each other.
func (t *RenamedSpansTracker) AppendPass(file string, deltas []SpanDelta) {
	if len(deltas) == 0 {
		return
	}
	sorted := make([]SpanDelta, len(deltas))
	copy(sorted, deltas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Old.Start < sorted[j].Old.Start })
	t.passes[file] = append(t.passes[file], sorted)
}

// AdjustPosition translates a position in the original snapshot to the
// current snapshot.
func (t *RenamedSpansTracker) AdjustPosition(file string, pos int) int {
	for _, pass := range t.passes[file] {
		pos = adjustThroughPass(pass, pos)
	}
	return pos
}

// AdjustSpan translates an original-snapshot span to the current snapshot.
// A span that exactly matches a rewritten span maps to the full replacement
// span, so a renamed token's span covers its replacement text.
func (t *RenamedSpansTracker) AdjustSpan(file string, span types.Span) types.Span {
	for _, pass := range t.passes[file] {
		span = adjustSpanThroughPass(pass, span)
	}
	return span
}

// UnadjustSpan translates a current-snapshot span back to the original
// snapshot, inverting every recorded pass. A span that exactly matches a
// replacement span maps to the full replaced span.
func (t *RenamedSpansTracker) UnadjustSpan(file string, span types.Span) types.Span {
	passes := t.passes[file]
	for i := len(passes) - 1; i >= 0; i-- {
		span = unadjustSpanThroughPass(passes[i], span)
	}
	return span
}

// HasChanges reports whether any pass touched file.
func (t *RenamedSpansTracker) HasChanges(file string) bool {
	return len(t.passes[file]) > 0
}

// Files lists every document with at least one recorded rewrite.
func (t *RenamedSpansTracker) Files() []string {
	files := make([]string, 0, len(t.passes))
	for file := range t.passes {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

func adjustThroughPass(pass []SpanDelta, pos int) int {
	shift := 0
	for _, d := range pass {
		if d.Old.End <= pos {
			shift += d.New.Len() - d.Old.Len()
			continue
		}
		if d.Old.Contains(pos) {
			// Inside a rewritten region: snap to the corresponding offset in
			// the replacement, clamped to its end.
			rel := pos - d.Old.Start
			if rel > d.New.Len() {
				rel = d.New.Len()
			}
			return d.New.Start + rel
		}
		break
	}
	return pos + shift
}

func unadjustThroughPass(pass []SpanDelta, pos int) int {
	shift := 0
	for _, d := range pass {
		if d.New.End <= pos {
			shift += d.Old.Len() - d.New.Len()
			continue
		}
		if d.New.Contains(pos) {
			rel := pos - d.New.Start
			if rel > d.Old.Len() {
				rel = d.Old.Len()
			}
			return d.Old.Start + rel
		}
		break
	}
	return pos + shift
}

func unadjustSpanThroughPass(pass []SpanDelta, span types.Span) types.Span {
	for _, d := range pass {
		if d.New == span {
			return d.Old
		}
	}
	start := unadjustThroughPass(pass, span.Start)
	end := start + span.Len()
	if span.Len() > 0 {
		end = unadjustThroughPass(pass, span.End-1) + 1
	}
	if end < start {
		end = start
	}
	return types.Span{Start: start, End: end}
}

func adjustSpanThroughPass(pass []SpanDelta, span types.Span) types.Span {
	for _, d := range pass {
		if d.Old == span {
			return d.New
		}
	}
	start := adjustThroughPass(pass, span.Start)
	// Ends are exclusive: adjust the last contained position, not End itself,
	// so a delta ending exactly at span.End still shifts it.
	end := start + span.Len()
	if span.Len() > 0 {
		end = adjustThroughPass(pass, span.End-1) + 1
	}
	if end < start {
		end = start
	}
	return types.Span{Start: start, End: end}
}
