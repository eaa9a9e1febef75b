package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	gotypes "go/types"
	"log/slog"
	"unicode"

	"github.com/mamaar/saferename/pkg/types"
)

// SymbolResolver handles symbol resolution and reference finding.
type SymbolResolver struct {
	workspace *types.Workspace
	parser    *GoParser
	logger    *slog.Logger
}

func NewSymbolResolver(ws *types.Workspace, parser *GoParser, logger *slog.Logger) *SymbolResolver {
	return &SymbolResolver{
		workspace: ws,
		parser:    parser,
		logger:    logger,
	}
}

// Workspace returns the snapshot this resolver reads.
func (sr *SymbolResolver) Workspace() *types.Workspace {
	return sr.workspace
}

// BuildSymbolTable builds complete symbol table for a package
func (sr *SymbolResolver) BuildSymbolTable(pkg *types.Package) (*types.SymbolTable, error) {
	symbolTable := types.NewSymbolTable(pkg)

	for _, file := range pkg.Files {
		if err := sr.extractSymbolsFromFile(file, symbolTable); err != nil {
			return nil, err
		}
	}
	for _, file := range pkg.TestFiles {
		if err := sr.extractSymbolsFromFile(file, symbolTable); err != nil {
			return nil, err
		}
	}

	pkg.Symbols = symbolTable
	return symbolTable, nil
}

// ResolveSymbol finds a symbol by name within a package, building the symbol
// table on demand.
func (sr *SymbolResolver) ResolveSymbol(pkg *types.Package, name string) (*types.Symbol, error) {
	if pkg.Symbols == nil {
		if _, err := sr.BuildSymbolTable(pkg); err != nil {
			return nil, err
		}
	}
	if sym := pkg.Symbols.FindSymbol(name); sym != nil {
		return sym, nil
	}
	return nil, &types.RefactorError{
		Type:    types.SymbolNotFound,
		Message: fmt.Sprintf("symbol not found: %s", name),
	}
}

// ResolveQualifiedMethod finds Type.Method in a package.
func (sr *SymbolResolver) ResolveQualifiedMethod(pkg *types.Package, typeName, methodName string) (*types.Symbol, error) {
	if pkg.Symbols == nil {
		if _, err := sr.BuildSymbolTable(pkg); err != nil {
			return nil, err
		}
	}
	for _, m := range pkg.Symbols.Methods[typeName] {
		if m.Name == methodName {
			return m, nil
		}
	}
	return nil, &types.RefactorError{
		Type:    types.SymbolNotFound,
		Message: fmt.Sprintf("method not found: %s.%s", typeName, methodName),
	}
}

func (sr *SymbolResolver) extractSymbolsFromFile(file *types.File, symbolTable *types.SymbolTable) error {
	ast.Inspect(file.AST, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncDecl:
			symbol := sr.extractFunctionSymbol(node, file)
			if node.Recv != nil {
				recvType := sr.extractReceiverType(node.Recv)
				symbol.Parent = symbolTable.Types[recvType]
				symbolTable.Methods[recvType] = append(symbolTable.Methods[recvType], symbol)
			} else {
				symbolTable.Functions[symbol.Name] = symbol
			}

		case *ast.GenDecl:
			sr.extractGenDeclSymbols(node, file, symbolTable)
		}
		return true
	})

	return nil
}

func (sr *SymbolResolver) extractFunctionSymbol(funcDecl *ast.FuncDecl, file *types.File) *types.Symbol {
	pos := sr.workspace.FileSet.Position(funcDecl.Name.Pos())
	symbol := &types.Symbol{
		Name:     funcDecl.Name.Name,
		Package:  file.Package.Path,
		File:     file.Path,
		Position: funcDecl.Name.Pos(), // Position of the function name, not the whole declaration
		End:      funcDecl.End(),
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
		Exported: isExported(funcDecl.Name.Name),
	}

	if funcDecl.Recv != nil {
		symbol.Kind = types.MethodSymbol
	} else {
		symbol.Kind = types.FunctionSymbol
	}

	symbol.Signature = sr.extractFunctionSignature(funcDecl)

	if funcDecl.Doc != nil {
		symbol.DocComment = funcDecl.Doc.Text()
	}

	return symbol
}

func (sr *SymbolResolver) extractGenDeclSymbols(genDecl *ast.GenDecl, file *types.File, symbolTable *types.SymbolTable) {
	for _, spec := range genDecl.Specs {
		switch s := spec.(type) {
		case *ast.ValueSpec:
			// Variables or constants
			for _, name := range s.Names {
				pos := sr.workspace.FileSet.Position(name.Pos())
				symbol := &types.Symbol{
					Name:     name.Name,
					Package:  file.Package.Path,
					File:     file.Path,
					Position: name.Pos(),
					End:      name.End(),
					Offset:   pos.Offset,
					Line:     pos.Line,
					Column:   pos.Column,
					Exported: isExported(name.Name),
				}

				if genDecl.Tok == token.CONST {
					symbol.Kind = types.ConstantSymbol
					symbolTable.Constants[symbol.Name] = symbol
				} else {
					symbol.Kind = types.VariableSymbol
					symbolTable.Variables[symbol.Name] = symbol
				}

				if genDecl.Doc != nil {
					symbol.DocComment = genDecl.Doc.Text()
				}
			}

		case *ast.TypeSpec:
			symbol := sr.extractTypeSymbol(s, file)
			symbolTable.Types[symbol.Name] = symbol
		}
	}
}

func (sr *SymbolResolver) extractTypeSymbol(typeSpec *ast.TypeSpec, file *types.File) *types.Symbol {
	pos := sr.workspace.FileSet.Position(typeSpec.Name.Pos())
	symbol := &types.Symbol{
		Name:     typeSpec.Name.Name,
		Kind:     types.TypeSymbol,
		Package:  file.Package.Path,
		File:     file.Path,
		Position: typeSpec.Name.Pos(), // Position of the type name, not the whole declaration
		End:      typeSpec.End(),
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
		Exported: isExported(typeSpec.Name.Name),
	}

	if _, ok := typeSpec.Type.(*ast.InterfaceType); ok {
		symbol.Kind = types.InterfaceSymbol
	}

	return symbol
}

func (sr *SymbolResolver) extractReceiverType(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	switch t := recv.List[0].Type.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
		if idx, ok := t.X.(*ast.IndexExpr); ok {
			if ident, ok := idx.X.(*ast.Ident); ok {
				return ident.Name
			}
		}
	case *ast.IndexExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	}
	return ""
}

func (sr *SymbolResolver) extractFunctionSignature(funcDecl *ast.FuncDecl) string {
	sig := "func "
	if funcDecl.Recv != nil {
		sig += "(" + sr.extractReceiverType(funcDecl.Recv) + ") "
	}
	sig += funcDecl.Name.Name
	return sig
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

// TargetObject maps a table symbol to its go/types object in the given
// snapshot. The symbol's declaring identifier is located by file and offset,
// so the lookup works on any snapshot where that document is unchanged.
func (sr *SymbolResolver) TargetObject(ws *types.Workspace, symbol *types.Symbol) (gotypes.Object, error) {
	pkg, ok := ws.Packages[symbol.Package]
	if !ok {
		return nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: fmt.Sprintf("package not found: %s", symbol.Package),
		}
	}
	sr.parser.EnsureTypeChecked(ws, pkg)
	if pkg.TypesInfo == nil {
		return nil, &types.RefactorError{
			Type:    types.InternalError,
			Message: fmt.Sprintf("no type information for package %s", symbol.Package),
			File:    symbol.File,
		}
	}

	for ident, obj := range pkg.TypesInfo.Defs {
		if obj == nil || ident.Name != symbol.Name {
			continue
		}
		pos := ws.FileSet.Position(ident.Pos())
		if pos.Filename == symbol.File && pos.Offset == symbol.Offset {
			return obj, nil
		}
	}
	return nil, &types.RefactorError{
		Type:    types.SymbolNotFound,
		Message: fmt.Sprintf("no declaration for %s at %s:%d", symbol.Name, symbol.File, symbol.Offset),
		File:    symbol.File,
	}
}

// ObjectKey derives the cross-snapshot identity key for a resolved object.
func ObjectKey(ws *types.Workspace, obj gotypes.Object) types.SymbolKey {
	key := types.SymbolKey{Name: obj.Name(), Kind: objectKind(obj)}
	if obj.Pkg() != nil {
		// The checker knows packages by import path; keys use the workspace
		// path, same as extracted symbols.
		key.Package = obj.Pkg().Path()
		if fsPath, ok := ws.ImportToPath[obj.Pkg().Path()]; ok {
			key.Package = fsPath
		}
	}
	if obj.Pos().IsValid() {
		pos := ws.FileSet.Position(obj.Pos())
		key.File = pos.Filename
		key.Offset = pos.Offset
	}
	return key
}

func objectKind(obj gotypes.Object) types.SymbolKind {
	switch o := obj.(type) {
	case *gotypes.Func:
		if sig, ok := o.Type().(*gotypes.Signature); ok && sig.Recv() != nil {
			return types.MethodSymbol
		}
		return types.FunctionSymbol
	case *gotypes.TypeName:
		if gotypes.IsInterface(o.Type()) {
			return types.InterfaceSymbol
		}
		return types.TypeSymbol
	case *gotypes.Const:
		return types.ConstantSymbol
	case *gotypes.PkgName:
		return types.PackageSymbol
	case *gotypes.Var:
		if o.IsField() {
			return types.StructFieldSymbol
		}
		return types.VariableSymbol
	default:
		return types.VariableSymbol
	}
}
