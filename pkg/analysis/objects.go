package analysis

import (
	"go/ast"
	gotypes "go/types"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/mamaar/saferename/pkg/types"
)

// ObjectsAtSpan resolves the symbol(s) now touching the identifier at span in
// the given snapshot. The identifier is located by byte offsets in the
// document's current text, so callers adjust original spans through the span
// tracker first. A nil slice with nil error means the position no longer
// binds to anything (erroneous code).
func (sr *SymbolResolver) ObjectsAtSpan(ws *types.Workspace, filePath string, span types.Span) ([]gotypes.Object, *ast.Ident, error) {
	file := ws.FindFile(filePath)
	if file == nil || file.AST == nil {
		return nil, nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: "document not found: " + filePath,
			File:    filePath,
		}
	}
	pkg := ws.FindPackageForFile(filePath)
	if pkg == nil {
		return nil, nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: "package not found for document: " + filePath,
			File:    filePath,
		}
	}
	sr.parser.EnsureTypeChecked(ws, pkg)

	ident := sr.identAtSpan(ws, file, span)
	if ident == nil || pkg.TypesInfo == nil {
		return nil, ident, nil
	}

	if obj, ok := pkg.TypesInfo.Defs[ident]; ok && obj != nil {
		return []gotypes.Object{obj}, ident, nil
	}
	if obj, ok := pkg.TypesInfo.Uses[ident]; ok && obj != nil {
		return []gotypes.Object{obj}, ident, nil
	}
	return nil, ident, nil
}

// ObjectsForInvocation resolves the callee of the smallest call expression
// enclosing span. For a renamed method or function this is the binding that
// matters: the bare name may be ambiguous while the call is not.
func (sr *SymbolResolver) ObjectsForInvocation(ws *types.Workspace, filePath string, span types.Span) ([]gotypes.Object, error) {
	file := ws.FindFile(filePath)
	if file == nil || file.AST == nil {
		return nil, nil
	}
	pkg := ws.FindPackageForFile(filePath)
	if pkg == nil {
		return nil, nil
	}
	sr.parser.EnsureTypeChecked(ws, pkg)
	if pkg.TypesInfo == nil {
		return nil, nil
	}

	tokFile := ws.FileSet.File(file.AST.Pos())
	if tokFile == nil || span.Start >= tokFile.Size() {
		return nil, nil
	}
	pos := tokFile.Pos(span.Start)
	path, _ := astutil.PathEnclosingInterval(file.AST, pos, pos)

	for _, node := range path {
		call, ok := node.(*ast.CallExpr)
		if !ok {
			continue
		}
		var callee *ast.Ident
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			callee = fun
		case *ast.SelectorExpr:
			callee = fun.Sel
		}
		if callee == nil {
			return nil, nil
		}
		if obj, ok := pkg.TypesInfo.Uses[callee]; ok && obj != nil {
			return []gotypes.Object{obj}, nil
		}
		return nil, nil
	}
	return nil, nil
}

// EnclosingPath returns the node path from the identifier at span up to the
// file root, innermost first.
func (sr *SymbolResolver) EnclosingPath(ws *types.Workspace, filePath string, span types.Span) []ast.Node {
	file := ws.FindFile(filePath)
	if file == nil || file.AST == nil {
		return nil
	}
	tokFile := ws.FileSet.File(file.AST.Pos())
	if tokFile == nil || span.Start >= tokFile.Size() {
		return nil
	}
	pos := tokFile.Pos(span.Start)
	path, _ := astutil.PathEnclosingInterval(file.AST, pos, pos)
	return path
}

// ScopeAt returns the innermost go/types scope containing the given offset.
func (sr *SymbolResolver) ScopeAt(ws *types.Workspace, filePath string, offset int) *gotypes.Scope {
	file := ws.FindFile(filePath)
	if file == nil || file.AST == nil {
		return nil
	}
	pkg := ws.FindPackageForFile(filePath)
	if pkg == nil {
		return nil
	}
	sr.parser.EnsureTypeChecked(ws, pkg)
	if pkg.TypesPkg == nil {
		return nil
	}
	tokFile := ws.FileSet.File(file.AST.Pos())
	if tokFile == nil || offset >= tokFile.Size() {
		return pkg.TypesPkg.Scope()
	}
	pos := tokFile.Pos(offset)
	if inner := pkg.TypesPkg.Scope().Innermost(pos); inner != nil {
		return inner
	}
	return pkg.TypesPkg.Scope()
}

// identAtSpan finds the identifier whose current span overlaps span.
func (sr *SymbolResolver) identAtSpan(ws *types.Workspace, file *types.File, span types.Span) *ast.Ident {
	var found *ast.Ident
	ast.Inspect(file.AST, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		ident, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		if spanOf(ws.FileSet, ident.Pos(), ident.End()).Overlaps(span) {
			found = ident
			return false
		}
		return true
	})
	return found
}
