package analysis

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/mamaar/saferename/pkg/types"
)

// FindRenameLocations returns every occurrence of symbol that a rename must
// rewrite: the declaration, all binding references, and, when the options ask
// for them, textual occurrences inside string literals and comments. The
// returned locations carry spans in the given snapshot's coordinates and are
// sorted by document and offset.
func (sr *SymbolResolver) FindRenameLocations(ws *types.Workspace, symbol *types.Symbol, opts types.RenameOptions) ([]types.RenameLocation, error) {
	target, err := sr.TargetObject(ws, symbol)
	if err != nil {
		return nil, err
	}

	var locations []types.RenameLocation
	seen := make(map[types.RenameLocation]bool)
	add := func(loc types.RenameLocation) {
		if !seen[loc] {
			seen[loc] = true
			locations = append(locations, loc)
		}
	}

	for _, pkg := range sr.affectedPackages(ws, symbol) {
		sr.parser.EnsureTypeChecked(ws, pkg)
		if pkg.TypesInfo == nil {
			continue
		}

		for ident, obj := range pkg.TypesInfo.Defs {
			if obj == target {
				add(types.RenameLocation{
					File: sr.fileOf(ws, ident.Pos()),
					Span: spanOf(ws.FileSet, ident.Pos(), ident.End()),
					Kind: types.DeclarationLocation,
				})
			}
		}
		for ident, obj := range pkg.TypesInfo.Uses {
			if sameObject(obj, target) {
				add(types.RenameLocation{
					File: sr.fileOf(ws, ident.Pos()),
					Span: spanOf(ws.FileSet, ident.Pos(), ident.End()),
					Kind: types.ReferenceLocation,
				})
			}
		}

		if opts.RenameInStrings || opts.RenameInComments {
			for _, file := range pkg.Files {
				for _, loc := range sr.textualOccurrences(ws, file, symbol.Name, opts) {
					add(loc)
				}
			}
			for _, file := range pkg.TestFiles {
				for _, loc := range sr.textualOccurrences(ws, file, symbol.Name, opts) {
					add(loc)
				}
			}
		}
	}

	sort.Slice(locations, func(i, j int) bool {
		if locations[i].File != locations[j].File {
			return locations[i].File < locations[j].File
		}
		return locations[i].Span.Start < locations[j].Span.Start
	})
	return locations, nil
}

// GetDocumentsAffectedByRename lists the paths of documents that may contain
// a reference to symbol, pruned with the fast identifier pre-filter.
func (sr *SymbolResolver) GetDocumentsAffectedByRename(ws *types.Workspace, symbol *types.Symbol) []string {
	var docs []string
	for _, pkg := range sr.affectedPackages(ws, symbol) {
		for _, file := range pkg.Files {
			if ProbablyContains(file, symbol.Name) {
				docs = append(docs, file.Path)
			}
		}
		for _, file := range pkg.TestFiles {
			if ProbablyContains(file, symbol.Name) {
				docs = append(docs, file.Path)
			}
		}
	}
	sort.Strings(docs)
	return docs
}

// affectedPackages returns the symbol's own package plus, for exported
// symbols, every workspace package importing it.
func (sr *SymbolResolver) affectedPackages(ws *types.Workspace, symbol *types.Symbol) []*types.Package {
	home, ok := ws.Packages[symbol.Package]
	if !ok {
		return nil
	}
	pkgs := []*types.Package{home}
	if !symbol.Exported {
		return pkgs
	}
	for _, pkg := range ws.Packages {
		if pkg == home {
			continue
		}
		for _, imp := range pkg.Imports {
			if fsPath, ok := ws.ImportToPath[imp]; ok && fsPath == home.Path {
				pkgs = append(pkgs, pkg)
				break
			}
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Path < pkgs[j].Path })
	return pkgs
}

// textualOccurrences finds identifier-boundary matches of name inside string
// literals and comments, honoring the per-kind options.
func (sr *SymbolResolver) textualOccurrences(ws *types.Workspace, file *types.File, name string, opts types.RenameOptions) []types.RenameLocation {
	var out []types.RenameLocation
	if file.AST == nil {
		return nil
	}

	if opts.RenameInStrings {
		ast.Inspect(file.AST, func(n ast.Node) bool {
			lit, ok := n.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				return true
			}
			span := spanOf(ws.FileSet, lit.Pos(), lit.End())
			text := string(file.Content[span.Start:span.End])
			for _, m := range identifierMatches(text, name) {
				out = append(out, types.RenameLocation{
					File:           file.Path,
					Span:           types.Span{Start: span.Start + m[0], End: span.Start + m[1]},
					Kind:           types.StringOrCommentLocation,
					ContainingSpan: span,
				})
			}
			return true
		})
	}

	if opts.RenameInComments {
		for _, group := range file.AST.Comments {
			for _, comment := range group.List {
				span := spanOf(ws.FileSet, comment.Pos(), comment.End())
				text := string(file.Content[span.Start:span.End])
				for _, m := range identifierMatches(text, name) {
					out = append(out, types.RenameLocation{
						File:           file.Path,
						Span:           types.Span{Start: span.Start + m[0], End: span.Start + m[1]},
						Kind:           types.StringOrCommentLocation,
						ContainingSpan: span,
					})
				}
			}
		}
	}

	return out
}

// ProbablyContains is a cheap pre-filter: does the document's text contain
// name as a standalone identifier? False negatives are impossible, false
// positives are fine, the caller still resolves properly.
func ProbablyContains(file *types.File, name string) bool {
	return len(identifierMatches(string(file.Content), name)) > 0
}

// identifierMatches returns the [start, end) byte ranges of every occurrence
// of name in text that is not glued to another identifier character.
func identifierMatches(text, name string) [][2]int {
	if name == "" {
		return nil
	}
	var out [][2]int
	for i := 0; i+len(name) <= len(text); {
		j := indexFrom(text, name, i)
		if j < 0 {
			break
		}
		if isIdentBoundary(text, j, j+len(name)) {
			out = append(out, [2]int{j, j + len(name)})
		}
		i = j + len(name)
	}
	return out
}

func indexFrom(text, sub string, from int) int {
	for i := from; i+len(sub) <= len(text); i++ {
		if text[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func isIdentBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isIdentRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// sameObject reports whether obj is target or, for methods and fields of
// instantiated generics, shares target's declaring identifier.
func sameObject(obj, target gotypes.Object) bool {
	if obj == target {
		return true
	}
	if obj == nil || target == nil {
		return false
	}
	return obj.Pos().IsValid() && obj.Pos() == target.Pos() && obj.Name() == target.Name()
}

func (sr *SymbolResolver) fileOf(ws *types.Workspace, pos token.Pos) string {
	return ws.FileSet.Position(pos).Filename
}

// spanOf converts a token position range to byte offsets.
func spanOf(fset *token.FileSet, pos, end token.Pos) types.Span {
	return types.Span{
		Start: fset.Position(pos).Offset,
		End:   fset.Position(end).Offset,
	}
}
