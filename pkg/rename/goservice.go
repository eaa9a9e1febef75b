package rename

import (
	"context"
	"go/ast"
	"go/token"
	gotypes "go/types"
	"path"
	"sort"
	"strings"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/types"
)

// GoLanguageService is the Go implementation of the rewrite and conflict
// primitives. It is stateless; every call receives the snapshots it needs.
type GoLanguageService struct{}

// IsIdentifierValid reports whether text is a legal, non-keyword Go
// identifier.
func (g *GoLanguageService) IsIdentifierValid(text string) bool {
	return token.IsIdentifier(text)
}

// textEdit is one pending replacement in current-document coordinates.
type textEdit struct {
	span types.Span
	text string
	ann  *RenameAnnotation
}

// AnnotateAndRename rewrites one document. On the document's first pass it
// replaces every rename-location token and string/comment subspan and
// annotates all candidate conflict locations; on later passes it expands the
// given complexification spans into package-qualified form. All span deltas
// land in the tracker, and annotations are re-keyed to the new text.
func (g *GoLanguageService) AnnotateAndRename(ctx context.Context, p *RewriteParams) (*RewriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := p.Document
	var edits []textEdit

	if p.ApplyRenames {
		renameEdits, err := g.renameEdits(p)
		if err != nil {
			return nil, err
		}
		edits = append(edits, renameEdits...)

		collisionAnns, err := g.collisionAnnotations(p)
		if err != nil {
			return nil, err
		}
		// Collision candidates are annotated without text change: record them
		// as empty edits so they get keyed like everything else.
		edits = append(edits, collisionAnns...)
	}

	for _, orig := range p.ComplexifySpans {
		edit, ok, err := g.complexifyEdit(p, orig)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// A conflict location renamed and expanded in the same pass folds
		// into one edit: the qualifier wraps the replacement text.
		merged := false
		for i := range edits {
			if edits[i].span == edit.span && edits[i].ann != nil && edits[i].ann.IsRenameLocation {
				qualifier := strings.TrimSuffix(edit.text, "."+edits[i].ann.OriginalText)
				edits[i].text = qualifier + "." + edits[i].text
				edits[i].ann.IsComplexified = true
				merged = true
				break
			}
		}
		if !merged {
			edits = append(edits, edit)
		}
	}

	changed := false
	for _, e := range edits {
		if e.text != string(doc.Content[e.span.Start:e.span.End]) {
			changed = true
			break
		}
	}
	if !changed {
		// Fast path: nothing to rewrite, keep annotations keyed as-is.
		for _, e := range edits {
			if e.ann != nil {
				p.Annotations.Add(doc.Path, e.span, e.ann)
			}
		}
		return &RewriteResult{File: doc, Changed: false}, nil
	}

	newContent, deltas, newSpans, err := applyEdits(doc.Path, doc.Content, edits)
	if err != nil {
		return nil, err
	}

	p.Tracker.AppendPass(doc.Path, deltas)
	p.Annotations.Move(doc.Path, func(s types.Span) types.Span {
		return adjustSpanThroughPass(deltas, s)
	})
	for i, e := range edits {
		if e.ann != nil {
			p.Annotations.Add(doc.Path, newSpans[i], e.ann)
		}
	}

	parsed, err := p.Parser.ParseFileContent(doc.Path, newContent)
	if err != nil {
		return nil, types.Fatal("reparse after rename", err)
	}
	return &RewriteResult{File: doc.WithContent(newContent, parsed.AST), Changed: true}, nil
}

// renameEdits builds the token replacements for every identifier rename
// context and string/comment subspan of the document, with annotations
// capturing each location's pre-rename bindings.
func (g *GoLanguageService) renameEdits(p *RewriteParams) ([]textEdit, error) {
	doc := p.Document
	var edits []textEdit

	for _, span := range p.Info.SortedContextSpans() {
		rc := p.Info.Contexts[span]
		cur := p.Tracker.AdjustSpan(doc.Path, span)

		ann := &RenameAnnotation{
			OriginalSpan:        span,
			IsRenameLocation:    true,
			IsInvalidIdentifier: !g.IsIdentifierValid(rc.ReplacementText),
			OriginalText:        rc.OriginalText,
			ReplacementText:     rc.ReplacementText,
		}
		g.classifyLocation(p, span, ann)
		ann.References = g.captureReferences(p, span, ann.IsInvocation)

		// An illegal replacement cannot be written into the tree without
		// breaking it; the location keeps its old text and the annotation
		// alone carries the conflict.
		text := rc.ReplacementText
		if ann.IsInvalidIdentifier {
			text = rc.OriginalText
		}
		edits = append(edits, textEdit{span: cur, text: text, ann: ann})
	}

	for _, sub := range p.Info.SortedSubSpans() {
		cur := p.Tracker.AdjustSpan(doc.Path, sub.Span)
		edits = append(edits, textEdit{span: cur, text: sub.Replacement})
	}

	return edits, nil
}

// collisionAnnotations tags every identifier in the document that already
// carries one of the replacement names. These are not rewritten, but the
// rename may capture them, so the conflict identifier must re-validate them.
func (g *GoLanguageService) collisionAnnotations(p *RewriteParams) ([]textEdit, error) {
	doc := p.Document
	replacements := make(map[string]bool)
	for _, rc := range p.Info.Contexts {
		replacements[rc.ReplacementText] = true
	}
	if len(replacements) == 0 {
		return nil, nil
	}

	origFile := p.Original.FindFile(doc.Path)
	if origFile == nil || origFile.AST == nil {
		return nil, nil
	}
	fset := p.Original.FileSet

	var edits []textEdit
	ast.Inspect(origFile.AST, func(n ast.Node) bool {
		ident, ok := n.(*ast.Ident)
		if !ok || !replacements[ident.Name] {
			return true
		}
		span := types.Span{
			Start: fset.Position(ident.Pos()).Offset,
			End:   fset.Position(ident.End()).Offset,
		}
		if _, isRename := p.Info.Contexts[span]; isRename {
			return true
		}
		ann := &RenameAnnotation{
			OriginalSpan: span,
			OriginalText: ident.Name,
		}
		g.classifyLocation(p, span, ann)
		ann.References = g.captureReferences(p, span, ann.IsInvocation)
		edits = append(edits, textEdit{span: span, text: ident.Name, ann: ann})
		return true
	})
	return edits, nil
}

// classifyLocation inspects the ORIGINAL snapshot around span and flags the
// annotation as invocation, member-group, or package-name reference.
func (g *GoLanguageService) classifyLocation(p *RewriteParams, span types.Span, ann *RenameAnnotation) {
	nodes := p.Resolver.EnclosingPath(p.Original, p.Document.Path, span)
	if len(nodes) == 0 {
		return
	}
	ident, ok := nodes[0].(*ast.Ident)
	if !ok {
		return
	}

	callee := ast.Expr(ident)
	if len(nodes) > 1 {
		if sel, ok := nodes[1].(*ast.SelectorExpr); ok && sel.Sel == ident {
			callee = sel
			if len(nodes) > 2 {
				if call, ok := nodes[2].(*ast.CallExpr); ok && call.Fun == callee {
					ann.IsInvocation = true
				}
			}
		} else if call, ok := nodes[1].(*ast.CallExpr); ok && call.Fun == callee {
			ann.IsInvocation = true
		}
		if _, ok := nodes[1].(*ast.ImportSpec); ok {
			ann.IsPackageNameReference = true
		}
	}

	objs, _, err := p.Resolver.ObjectsAtSpan(p.Original, p.Document.Path, span)
	if err != nil || len(objs) == 0 {
		return
	}
	switch objs[0].(type) {
	case *gotypes.PkgName:
		ann.IsPackageNameReference = true
	case *gotypes.Func:
		if !ann.IsInvocation {
			ann.IsMemberGroupReference = true
		}
	}
}

// captureReferences resolves the position in the ORIGINAL snapshot and
// records the declaration locations of everything it binds to. Invocations
// are captured through their enclosing call.
func (g *GoLanguageService) captureReferences(p *RewriteParams, span types.Span, isInvocation bool) []DeclarationReference {
	var objs []gotypes.Object
	if isInvocation {
		objs, _ = p.Resolver.ObjectsForInvocation(p.Original, p.Document.Path, span)
	}
	if len(objs) == 0 {
		objs, _, _ = p.Resolver.ObjectsAtSpan(p.Original, p.Document.Path, span)
	}
	return declarationReferences(p.Original, objs)
}

func declarationReferences(ws *types.Workspace, objs []gotypes.Object) []DeclarationReference {
	var refs []DeclarationReference
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if !obj.Pos().IsValid() {
			refs = append(refs, DeclarationReference{IsSource: false})
			continue
		}
		pos := ws.FileSet.Position(obj.Pos())
		refs = append(refs, DeclarationReference{
			File:     pos.Filename,
			Offset:   pos.Offset,
			IsSource: true,
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].File != refs[j].File {
			return refs[i].File < refs[j].File
		}
		return refs[i].Offset < refs[j].Offset
	})
	return refs
}

// complexifyEdit expands the identifier at an original-coordinate conflict
// span into its package-qualified form. Qualification is the only expansion
// Go offers: a bare reference to another package's symbol (via dot import)
// becomes pkg.Name, which no rename of a local can capture.
func (g *GoLanguageService) complexifyEdit(p *RewriteParams, orig types.Span) (textEdit, bool, error) {
	doc := p.Document
	cur := p.Tracker.AdjustSpan(doc.Path, orig)
	if cur.Start < 0 || cur.End > len(doc.Content) || cur.Len() == 0 {
		return textEdit{}, false, nil
	}
	current := string(doc.Content[cur.Start:cur.End])
	if strings.Contains(current, ".") {
		return textEdit{}, false, nil // already qualified
	}

	qualifier, ok := g.qualifierFor(p, orig)
	if !ok {
		return textEdit{}, false, nil
	}

	ann := p.Annotations.Get(doc.Path, cur)
	if ann == nil {
		ann = &RenameAnnotation{OriginalSpan: orig, OriginalText: current}
	}
	ann.IsComplexified = true

	return textEdit{span: cur, text: qualifier + "." + current, ann: ann}, true, nil
}

// qualifierFor finds the package name usable to qualify the original
// location's symbol inside this document.
func (g *GoLanguageService) qualifierFor(p *RewriteParams, orig types.Span) (string, bool) {
	objs, _, err := p.Resolver.ObjectsAtSpan(p.Original, p.Document.Path, orig)
	if err != nil || len(objs) == 0 || objs[0].Pkg() == nil {
		return "", false
	}
	objPkg := objs[0].Pkg().Path()

	origFile := p.Original.FindFile(p.Document.Path)
	owner := p.Original.FindPackageForFile(p.Document.Path)
	if origFile == nil || origFile.AST == nil || owner == nil {
		return "", false
	}
	if owner.ImportPath == objPkg {
		return "", false // same package, Go has no self-qualification
	}

	for _, imp := range origFile.AST.Imports {
		impPath := strings.Trim(imp.Path.Value, "\"")
		if impPath != objPkg {
			continue
		}
		if imp.Name != nil && imp.Name.Name != "." && imp.Name.Name != "_" {
			return imp.Name.Name, true
		}
		if imp.Name == nil {
			return path.Base(impPath), true
		}
		// Dot import: qualify with the imported package's real name.
		if fsPath, ok := p.Original.ImportToPath[impPath]; ok {
			if pkg, ok := p.Original.Packages[fsPath]; ok {
				return pkg.Name, true
			}
		}
		return path.Base(impPath), true
	}
	return "", false
}

// LocalVariableConflict defers to the scope analyzer's conservative check.
func (g *GoLanguageService) LocalVariableConflict(ws *types.Workspace, file string, span types.Span, newName string) bool {
	doc := ws.FindFile(file)
	if doc == nil {
		return false
	}
	return analysis.NewScopeAnalyzer(ws).LocalVariableConflict(doc, span, newName)
}

// GetExpansionTargetForLocation returns the smallest enclosing statement of
// the identifier at span, but only when qualification can actually help:
// the symbol must live in another package that this document imports. For
// everything else (locals, same-package globals) Go has no explicit form, so
// there is no target and the conflict is unresolvable.
func (g *GoLanguageService) GetExpansionTargetForLocation(original *types.Workspace, resolver *analysis.SymbolResolver, file string, span types.Span) (types.Span, bool) {
	if _, ok := g.qualifierFor(&RewriteParams{
		Original: original,
		Document: &types.File{Path: file},
		Resolver: resolver,
	}, span); !ok {
		return types.Span{}, false
	}

	nodes := resolver.EnclosingPath(original, file, span)
	fset := original.FileSet
	for i, node := range nodes {
		if _, ok := node.(*ast.FuncLit); ok {
			// A conflict inside a func literal expands the literal's
			// enclosing statement.
			for _, outer := range nodes[i+1:] {
				if stmt, ok := outer.(ast.Stmt); ok {
					return spanOfNode(fset, stmt), true
				}
			}
		}
		if stmt, ok := node.(ast.Stmt); ok {
			return spanOfNode(fset, stmt), true
		}
	}
	return types.Span{}, false
}

// Simplify drops qualifications added during the session that are no longer
// needed: for each complexified location, if the bare name binds to the same
// declaration in the final snapshot, the qualifier goes away again.
func (g *GoLanguageService) Simplify(ctx context.Context, p *RewriteParams) (*RewriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := p.Document
	changedAny := false

	var spans []types.Span
	for _, span := range p.Annotations.ForFile(doc.Path) {
		if ann := p.Annotations.Get(doc.Path, span); ann != nil && ann.IsComplexified {
			spans = append(spans, span)
		}
	}

	for i := 0; i < len(spans); i++ {
		span := spans[i]
		current := string(doc.Content[span.Start:span.End])
		dot := strings.Index(current, ".")
		if dot < 0 {
			continue
		}
		bare := current[dot+1:]

		qualifiedObjs := g.objectsInTrial(p, doc, span, current)
		trialObjs := g.objectsInTrial(p, doc, span, bare)
		if len(qualifiedObjs) == 0 || !sameDeclarations(p.Snapshot, qualifiedObjs, trialObjs) {
			continue
		}

		deltas := []SpanDelta{{
			Old: span,
			New: types.Span{Start: span.Start, End: span.Start + len(bare)},
		}}
		newContent := append([]byte{}, doc.Content[:span.Start]...)
		newContent = append(newContent, bare...)
		newContent = append(newContent, doc.Content[span.End:]...)

		parsed, err := p.Parser.ParseFileContent(doc.Path, newContent)
		if err != nil {
			continue // keep the qualified form rather than break the document
		}

		p.Tracker.AppendPass(doc.Path, deltas)
		p.Annotations.Move(doc.Path, func(s types.Span) types.Span {
			return adjustSpanThroughPass(deltas, s)
		})
		for j := i + 1; j < len(spans); j++ {
			spans[j] = adjustSpanThroughPass(deltas, spans[j])
		}
		doc = doc.WithContent(newContent, parsed.AST)
		changedAny = true
	}

	return &RewriteResult{File: doc, Changed: changedAny}, nil
}

// objectsInTrial resolves what text at span would bind to in a trial copy of
// the current snapshot.
func (g *GoLanguageService) objectsInTrial(p *RewriteParams, doc *types.File, span types.Span, text string) []gotypes.Object {
	trialContent := append([]byte{}, doc.Content[:span.Start]...)
	trialContent = append(trialContent, text...)
	trialContent = append(trialContent, doc.Content[span.End:]...)

	parsed, err := p.Parser.ParseFileContent(doc.Path, trialContent)
	if err != nil {
		return nil
	}
	trial := p.Snapshot.Clone()
	pkg := trial.ReplaceFile(doc.WithContent(trialContent, parsed.AST))
	if pkg == nil {
		return nil
	}
	p.Parser.InvalidateTypes(trial, pkg)

	// Resolve the trailing identifier of the trial text.
	identStart := span.Start
	if dot := strings.LastIndex(text, "."); dot >= 0 {
		identStart = span.Start + dot + 1
	}
	trialSpan := types.Span{Start: identStart, End: span.Start + len(text)}
	objs, _, _ := p.Resolver.ObjectsAtSpan(trial, doc.Path, trialSpan)
	return objs
}

func sameDeclarations(ws *types.Workspace, a, b []gotypes.Object) bool {
	return declRefsEqual(declarationReferences(ws, a), declarationReferences(ws, b))
}

func declRefsEqual(a, b []DeclarationReference) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// applyEdits rewrites content, returning the new text, the pass deltas, and
// the post-rewrite span of each edit in input order. Overlapping edits are an
// invariant violation.
func applyEdits(file string, content []byte, edits []textEdit) ([]byte, []SpanDelta, []types.Span, error) {
	order := make([]int, len(edits))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return edits[order[i]].span.Start < edits[order[j]].span.Start
	})

	for k := 1; k < len(order); k++ {
		prev, cur := edits[order[k-1]], edits[order[k]]
		if prev.span.End > cur.span.Start {
			return nil, nil, nil, types.Fatal("apply edits", &types.ConflictContextError{
				File:        file,
				Span:        cur.span,
				Replacement: cur.text,
				Existing:    prev.text,
			})
		}
	}

	newSpans := make([]types.Span, len(edits))
	var deltas []SpanDelta
	var out []byte
	last := 0
	shift := 0
	for _, idx := range order {
		e := edits[idx]
		out = append(out, content[last:e.span.Start]...)
		out = append(out, e.text...)
		newSpan := types.Span{Start: e.span.Start + shift, End: e.span.Start + shift + len(e.text)}
		newSpans[idx] = newSpan
		if len(e.text) != e.span.Len() || string(content[e.span.Start:e.span.End]) != e.text {
			deltas = append(deltas, SpanDelta{Old: e.span, New: newSpan})
		}
		shift += len(e.text) - e.span.Len()
		last = e.span.End
	}
	out = append(out, content[last:]...)
	return out, deltas, newSpans, nil
}

func spanOfNode(fset *token.FileSet, node ast.Node) types.Span {
	return types.Span{
		Start: fset.Position(node.Pos()).Offset,
		End:   fset.Position(node.End()).Offset,
	}
}
