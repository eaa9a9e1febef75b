package rename

import (
	"context"
	"go/ast"
	gotypes "go/types"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/types"
)

// DeclarationConflicts checks the renamed symbol's declaration against
// everything sharing its scope in the final snapshot. Declaration clashes in
// Go have no qualified escape hatch, so every hit is unresolvable.
func (g *GoLanguageService) DeclarationConflicts(ctx context.Context, p *ConflictCheckParams) ([]types.RelatedLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch p.Symbol.Kind {
	case types.MethodSymbol:
		return g.methodDeclarationConflicts(p)
	case types.VariableSymbol:
		if locs := g.localDeclarationConflicts(p); locs != nil {
			return locs, nil
		}
		return g.packageScopeConflicts(p)
	default:
		return g.packageScopeConflicts(p)
	}
}

// packageScopeConflicts finds other top-level declarations of the
// replacement name in the symbol's package.
func (g *GoLanguageService) packageScopeConflicts(p *ConflictCheckParams) ([]types.RelatedLocation, error) {
	pkg := p.Snapshot.FindPackageForFile(p.Symbol.File)
	if pkg == nil {
		return nil, nil
	}

	origDeclSpan := types.Span{
		Start: p.Symbol.Offset,
		End:   p.Symbol.Offset + len(p.Symbol.Name),
	}
	declSpan := p.Tracker.AdjustSpan(p.Symbol.File, origDeclSpan)

	var locs []types.RelatedLocation
	for _, file := range pkg.Files {
		if file.AST == nil {
			continue
		}
		for _, ident := range topLevelDeclarations(file.AST, p.Replacement) {
			span := spanOfNode(p.Snapshot.FileSet, ident)
			if file.Path == p.Symbol.File && span == declSpan {
				continue
			}
			if allowListedDecl(p, file.Path, span) {
				continue
			}
			// Decls are walked in the final snapshot, reported in original
			// coordinates.
			locs = append(locs, types.RelatedLocation{
				File: file.Path,
				Span: p.Tracker.UnadjustSpan(file.Path, span),
				Type: types.UnresolvableConflict,
			})
		}
	}
	if len(locs) > 0 {
		// The renamed declaration itself participates in the clash.
		locs = append(locs, types.RelatedLocation{
			File: p.Symbol.File,
			Span: origDeclSpan,
			Type: types.UnresolvableConflict,
		})
	}
	return locs, nil
}

// methodDeclarationConflicts finds another method of the same receiver type
// already carrying the replacement name.
func (g *GoLanguageService) methodDeclarationConflicts(p *ConflictCheckParams) ([]types.RelatedLocation, error) {
	pkg := p.Snapshot.FindPackageForFile(p.Symbol.File)
	if pkg == nil || p.Symbol.Parent == nil {
		return nil, nil
	}

	origDeclSpan := types.Span{
		Start: p.Symbol.Offset,
		End:   p.Symbol.Offset + len(p.Symbol.Name),
	}
	declSpan := p.Tracker.AdjustSpan(p.Symbol.File, origDeclSpan)

	var locs []types.RelatedLocation
	for _, file := range pkg.Files {
		if file.AST == nil {
			continue
		}
		for _, decl := range file.AST.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || fn.Name.Name != p.Replacement {
				continue
			}
			if receiverTypeName(fn.Recv) != p.Symbol.Parent.Name {
				continue
			}
			span := spanOfNode(p.Snapshot.FileSet, fn.Name)
			if file.Path == p.Symbol.File && span == declSpan {
				continue
			}
			if allowListedDecl(p, file.Path, span) {
				continue
			}
			locs = append(locs, types.RelatedLocation{
				File: file.Path,
				Span: p.Tracker.UnadjustSpan(file.Path, span),
				Type: types.UnresolvableConflict,
			})
		}
	}
	if len(locs) > 0 {
		locs = append(locs, types.RelatedLocation{
			File: p.Symbol.File,
			Span: origDeclSpan,
			Type: types.UnresolvableConflict,
		})
	}
	return locs, nil
}

// localDeclarationConflicts reports a sibling local declaration of the
// replacement name in the symbol's enclosing function, or nil when the
// symbol is not local.
func (g *GoLanguageService) localDeclarationConflicts(p *ConflictCheckParams) []types.RelatedLocation {
	file := p.Snapshot.FindFile(p.Symbol.File)
	if file == nil || file.AST == nil {
		return nil
	}
	origDeclSpan := types.Span{
		Start: p.Symbol.Offset,
		End:   p.Symbol.Offset + len(p.Symbol.Name),
	}
	declSpan := p.Tracker.AdjustSpan(p.Symbol.File, origDeclSpan)

	sa := analysis.NewScopeAnalyzer(p.Snapshot)
	idents := sa.LocalDeclarationsOf(file, declSpan, p.Replacement)
	if idents == nil {
		return nil
	}

	var locs []types.RelatedLocation
	for _, ident := range idents {
		span := spanOfNode(p.Snapshot.FileSet, ident)
		if span == declSpan {
			continue
		}
		locs = append(locs, types.RelatedLocation{
			File: p.Symbol.File,
			Span: p.Tracker.UnadjustSpan(p.Symbol.File, span),
			Type: types.UnresolvableConflict,
		})
	}
	if len(locs) == 0 {
		return nil
	}
	locs = append(locs, types.RelatedLocation{
		File: p.Symbol.File,
		Span: origDeclSpan,
		Type: types.UnresolvableConflict,
	})
	return locs
}

// allowListedDecl reports whether the declaration at span belongs to a
// symbol on the caller's NonConflictSymbols allow-list. Allow keys carry
// original offsets, so adjusted positions are compared as well.
func allowListedDecl(p *ConflictCheckParams, file string, span types.Span) bool {
	for allow := range p.Options.NonConflictSymbols {
		if allow.File != file {
			continue
		}
		if allow.Offset == span.Start || p.Tracker.AdjustPosition(file, allow.Offset) == span.Start {
			return true
		}
	}
	return false
}

// ImplicitUsageConflicts reports interfaces the renamed method's receiver
// type satisfied before the rename but no longer does. Interface dispatch is
// Go's implicit usage: no reference token names the method, so the damage
// only shows up by re-checking satisfaction.
func (g *GoLanguageService) ImplicitUsageConflicts(ctx context.Context, p *ConflictCheckParams) ([]types.RelatedLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Symbol.Kind != types.MethodSymbol {
		return nil, nil
	}

	obj, err := p.Resolver.TargetObject(p.Original, p.Symbol)
	if err != nil || obj == nil {
		return nil, nil
	}
	fn, ok := obj.(*gotypes.Func)
	if !ok {
		return nil, nil
	}
	sig, ok := fn.Type().(*gotypes.Signature)
	if !ok || sig.Recv() == nil {
		return nil, nil
	}
	recvType := sig.Recv().Type()
	recvName := receiverBaseName(recvType)
	if recvName == "" {
		return nil, nil
	}

	var locs []types.RelatedLocation
	for _, origPkg := range p.Original.Packages {
		p.Parser.EnsureTypeChecked(p.Original, origPkg)
		if origPkg.TypesPkg == nil {
			continue
		}
		scope := origPkg.TypesPkg.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*gotypes.TypeName)
			if !ok {
				continue
			}
			iface, ok := tn.Type().Underlying().(*gotypes.Interface)
			if !ok || !interfaceNamesMethod(iface, p.Symbol.Name) {
				continue
			}
			if !gotypes.Implements(recvType, iface) && !gotypes.Implements(gotypes.NewPointer(recvType), iface) {
				continue
			}
			if g.stillImplements(p, origPkg.Path, name, recvName) {
				continue
			}
			pos := p.Original.FileSet.Position(tn.Pos())
			locs = append(locs, types.RelatedLocation{
				File: pos.Filename,
				Span: types.Span{Start: pos.Offset, End: pos.Offset + len(name)},
				Type: types.UnresolvedConflict,
			})
		}
	}
	return locs, nil
}

// stillImplements re-resolves the interface and receiver type by name in the
// final snapshot and re-checks satisfaction.
func (g *GoLanguageService) stillImplements(p *ConflictCheckParams, ifacePkgPath, ifaceName, recvName string) bool {
	ifacePkg, ok := p.Snapshot.Packages[ifacePkgPath]
	if !ok {
		return true
	}
	p.Parser.EnsureTypeChecked(p.Snapshot, ifacePkg)
	if ifacePkg.TypesPkg == nil {
		return true
	}
	tn, ok := ifacePkg.TypesPkg.Scope().Lookup(ifaceName).(*gotypes.TypeName)
	if !ok {
		return true
	}
	iface, ok := tn.Type().Underlying().(*gotypes.Interface)
	if !ok {
		return true
	}

	recvPkg := p.Snapshot.FindPackageForFile(p.Symbol.File)
	if recvPkg == nil {
		return true
	}
	p.Parser.EnsureTypeChecked(p.Snapshot, recvPkg)
	if recvPkg.TypesPkg == nil {
		return true
	}
	recvTn, ok := recvPkg.TypesPkg.Scope().Lookup(recvName).(*gotypes.TypeName)
	if !ok {
		return true
	}
	recvType := recvTn.Type()
	return gotypes.Implements(recvType, iface) || gotypes.Implements(gotypes.NewPointer(recvType), iface)
}

func interfaceNamesMethod(iface *gotypes.Interface, name string) bool {
	for i := 0; i < iface.NumExplicitMethods(); i++ {
		if iface.ExplicitMethod(i).Name() == name {
			return true
		}
	}
	for i := 0; i < iface.NumMethods(); i++ {
		if iface.Method(i).Name() == name {
			return true
		}
	}
	return false
}

// receiverBaseName unwraps pointers and returns the named receiver type's
// name.
func receiverBaseName(t gotypes.Type) string {
	if ptr, ok := t.(*gotypes.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*gotypes.Named); ok {
		return named.Obj().Name()
	}
	return ""
}

// receiverTypeName extracts the bare type name from a method receiver list.
func receiverTypeName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if idx, ok := expr.(*ast.IndexExpr); ok {
		expr = idx.X
	}
	if idx, ok := expr.(*ast.IndexListExpr); ok {
		expr = idx.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// topLevelDeclarations returns the idents of every package-level declaration
// of name in one file.
func topLevelDeclarations(root *ast.File, name string) []*ast.Ident {
	var idents []*ast.Ident
	for _, decl := range root.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == name {
				idents = append(idents, d.Name)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.Name == name {
						idents = append(idents, s.Name)
					}
				case *ast.ValueSpec:
					for _, n := range s.Names {
						if n.Name == name {
							idents = append(idents, n)
						}
					}
				}
			}
		}
	}
	return idents
}
