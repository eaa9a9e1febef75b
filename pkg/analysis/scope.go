package analysis

import (
	"go/ast"
	"go/token"

	"github.com/mamaar/saferename/pkg/types"
)

// ScopeAnalyzer answers lexical-scope questions for the conflict checks.
type ScopeAnalyzer struct {
	workspace *types.Workspace
}

func NewScopeAnalyzer(ws *types.Workspace) *ScopeAnalyzer {
	return &ScopeAnalyzer{workspace: ws}
}

// LocalVariableConflict reports whether introducing the name at the given
// location could misbind against a local declaration of the same name.
//
// This is deliberately a superset check: any declaration of name anywhere in
// the enclosing function counts, regardless of whether its block actually
// shadows the location. The occasional false positive is accepted; a missed
// real shadowing is not.
func (sa *ScopeAnalyzer) LocalVariableConflict(file *types.File, span types.Span, name string) bool {
	if file == nil || file.AST == nil {
		return false
	}
	tokFile := sa.workspace.FileSet.File(file.AST.Pos())
	if tokFile == nil || span.Start >= tokFile.Size() {
		return false
	}
	pos := tokFile.Pos(span.Start)

	fn := sa.enclosingFunction(file.AST, pos)
	if fn == nil {
		return false
	}

	found := false
	for _, decl := range sa.localDeclarations(fn, name) {
		// The location's own identifier does not shadow itself.
		if decl.Pos() <= pos && pos < decl.End() {
			continue
		}
		found = true
		break
	}
	return found
}

// LocalDeclarationsOf returns the identifiers declaring name inside the
// function enclosing pos, parameters and receivers included.
func (sa *ScopeAnalyzer) LocalDeclarationsOf(file *types.File, span types.Span, name string) []*ast.Ident {
	if file == nil || file.AST == nil {
		return nil
	}
	tokFile := sa.workspace.FileSet.File(file.AST.Pos())
	if tokFile == nil || span.Start >= tokFile.Size() {
		return nil
	}
	fn := sa.enclosingFunction(file.AST, tokFile.Pos(span.Start))
	if fn == nil {
		return nil
	}
	return sa.localDeclarations(fn, name)
}

// enclosingFunction finds the innermost function declaration or literal
// containing pos.
func (sa *ScopeAnalyzer) enclosingFunction(root *ast.File, pos token.Pos) ast.Node {
	var fn ast.Node
	ast.Inspect(root, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		if pos < n.Pos() || pos >= n.End() {
			return false
		}
		switch n.(type) {
		case *ast.FuncDecl, *ast.FuncLit:
			fn = n // keep innermost
		}
		return true
	})
	return fn
}

// localDeclarations collects every identifier introducing name inside fn:
// parameters, results, receivers, short declarations, var/const declarations,
// range and type-switch variables.
func (sa *ScopeAnalyzer) localDeclarations(fn ast.Node, name string) []*ast.Ident {
	var decls []*ast.Ident
	add := func(ident *ast.Ident) {
		if ident != nil && ident.Name == name {
			decls = append(decls, ident)
		}
	}
	addFields := func(fields *ast.FieldList) {
		if fields == nil {
			return
		}
		for _, field := range fields.List {
			for _, ident := range field.Names {
				add(ident)
			}
		}
	}

	if decl, ok := fn.(*ast.FuncDecl); ok {
		addFields(decl.Recv)
		addFields(decl.Type.Params)
		addFields(decl.Type.Results)
	}
	if lit, ok := fn.(*ast.FuncLit); ok {
		addFields(lit.Type.Params)
		addFields(lit.Type.Results)
	}

	ast.Inspect(fn, func(n ast.Node) bool {
		switch stmt := n.(type) {
		case *ast.AssignStmt:
			if stmt.Tok == token.DEFINE {
				for _, lhs := range stmt.Lhs {
					if ident, ok := lhs.(*ast.Ident); ok && ident.Name != "_" {
						add(ident)
					}
				}
			}
		case *ast.DeclStmt:
			if genDecl, ok := stmt.Decl.(*ast.GenDecl); ok {
				for _, spec := range genDecl.Specs {
					if valueSpec, ok := spec.(*ast.ValueSpec); ok {
						for _, ident := range valueSpec.Names {
							if ident.Name != "_" {
								add(ident)
							}
						}
					}
				}
			}
		case *ast.RangeStmt:
			if stmt.Tok == token.DEFINE {
				if ident, ok := stmt.Key.(*ast.Ident); ok {
					add(ident)
				}
				if ident, ok := stmt.Value.(*ast.Ident); ok {
					add(ident)
				}
			}
		case *ast.TypeSwitchStmt:
			if assign, ok := stmt.Assign.(*ast.AssignStmt); ok && len(assign.Lhs) > 0 {
				if ident, ok := assign.Lhs[0].(*ast.Ident); ok && ident.Name != "_" {
					add(ident)
				}
			}
		case *ast.FuncLit:
			addFields(stmt.Type.Params)
			addFields(stmt.Type.Results)
		}
		return true
	})

	return decls
}
