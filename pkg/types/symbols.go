package types

import "go/token"

// Symbol represents any named entity in Go code.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Package    string
	File       string
	Position   token.Pos
	End        token.Pos
	Offset     int // Byte offset of the name within the file
	Line       int
	Column     int
	Exported   bool
	Signature  string // Function signature, type def, etc.
	DocComment string
	Parent     *Symbol // For methods, struct fields
}

type SymbolKind int

const (
	FunctionSymbol SymbolKind = iota
	MethodSymbol
	TypeSymbol
	VariableSymbol
	ConstantSymbol
	InterfaceSymbol
	StructFieldSymbol
	PackageSymbol
)

// String returns the string representation of a SymbolKind
func (k SymbolKind) String() string {
	switch k {
	case FunctionSymbol:
		return "Function"
	case MethodSymbol:
		return "Method"
	case TypeSymbol:
		return "Type"
	case VariableSymbol:
		return "Variable"
	case ConstantSymbol:
		return "Constant"
	case InterfaceSymbol:
		return "Interface"
	case StructFieldSymbol:
		return "StructField"
	case PackageSymbol:
		return "Package"
	default:
		return "Unknown"
	}
}

// Key returns a serializable identity for the symbol, stable enough to match
// the symbol against its image in another snapshot of the same program.
func (s *Symbol) Key() SymbolKey {
	return SymbolKey{
		Package: s.Package,
		Kind:    s.Kind,
		Name:    s.Name,
		File:    s.File,
		Offset:  s.Offset,
	}
}

// SymbolKey identifies a symbol across two snapshots. Offsets of symbols in a
// rewritten document must be adjusted through the span tracker before two
// keys are compared.
type SymbolKey struct {
	Package string
	Kind    SymbolKind
	Name    string
	File    string
	Offset  int
}

// Reference represents where a symbol is used.
type Reference struct {
	Symbol   *Symbol
	Position token.Pos
	Offset   int // Byte offset within the file
	File     string
	Line     int
	Column   int
	IsDecl   bool // true when this reference is the declaring identifier
}

// SymbolTable holds all symbols for a package.
type SymbolTable struct {
	Package   *Package
	Functions map[string]*Symbol
	Types     map[string]*Symbol
	Variables map[string]*Symbol
	Constants map[string]*Symbol
	Methods   map[string][]*Symbol // type name -> methods
}

// NewSymbolTable returns an empty table for pkg.
func NewSymbolTable(pkg *Package) *SymbolTable {
	return &SymbolTable{
		Package:   pkg,
		Functions: make(map[string]*Symbol),
		Types:     make(map[string]*Symbol),
		Variables: make(map[string]*Symbol),
		Constants: make(map[string]*Symbol),
		Methods:   make(map[string][]*Symbol),
	}
}

// FindSymbol searches the symbol table for a symbol by name across all categories.
func (st *SymbolTable) FindSymbol(name string) *Symbol {
	if st == nil {
		return nil
	}
	if s, ok := st.Functions[name]; ok {
		return s
	}
	if s, ok := st.Types[name]; ok {
		return s
	}
	if s, ok := st.Variables[name]; ok {
		return s
	}
	if s, ok := st.Constants[name]; ok {
		return s
	}
	for _, methods := range st.Methods {
		for _, m := range methods {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

// AllSymbols flattens the table into a single slice.
func (st *SymbolTable) AllSymbols() []*Symbol {
	if st == nil {
		return nil
	}
	var out []*Symbol
	for _, s := range st.Functions {
		out = append(out, s)
	}
	for _, s := range st.Types {
		out = append(out, s)
	}
	for _, s := range st.Variables {
		out = append(out, s)
	}
	for _, s := range st.Constants {
		out = append(out, s)
	}
	for _, methods := range st.Methods {
		out = append(out, methods...)
	}
	return out
}
