package types

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
)

// Workspace is an immutable-by-convention snapshot of a Go module or GOPATH
// tree. Rename sessions never mutate a Workspace in place: documents are
// replaced wholesale via ReplaceFile on a Clone, so two snapshots can be
// compared against each other safely.
type Workspace struct {
	RootPath     string
	Module       *Module
	Packages     map[string]*Package // package path -> Package
	ImportToPath map[string]string   // import path -> package path key
	FileSet      *token.FileSet
}

// Package represents a single Go package inside a workspace.
type Package struct {
	Path       string // Filesystem key (see Workspace.Packages)
	ImportPath string // Import path, when the module root is known
	Name       string // Package name
	Dir        string // Filesystem directory
	Files      map[string]*File
	Symbols    *SymbolTable
	Imports    []string // Direct imports
	TestFiles  map[string]*File

	// Lazily populated by the parser's type-checking pass. Reset to nil
	// whenever a document in this package (or a dependency) is rewritten.
	TypesPkg  *gotypes.Package
	TypesInfo *gotypes.Info
}

// InvalidateTypes drops stale type-checking results after a rewrite.
func (p *Package) InvalidateTypes() {
	p.TypesPkg = nil
	p.TypesInfo = nil
}

// File represents a single Go source document. Content is the document's
// current text; a rewritten document is a new File value and the old one
// stays valid as part of the previous snapshot.
type File struct {
	Path    string
	Package *Package
	AST     *ast.File
	Content []byte
}

// WithContent returns a copy of the file carrying new text and its re-parsed
// tree. The receiver is left untouched.
func (f *File) WithContent(content []byte, tree *ast.File) *File {
	return &File{
		Path:    f.Path,
		Package: f.Package,
		AST:     tree,
		Content: content,
	}
}

// Module represents Go module information.
type Module struct {
	Path    string
	Version string
	GoMod   string // Contents of go.mod
}

// Clone returns a shallow snapshot copy: new package and file maps, shared
// File values. Callers swap individual documents with ReplaceFile afterwards.
func (ws *Workspace) Clone() *Workspace {
	next := &Workspace{
		RootPath:     ws.RootPath,
		Module:       ws.Module,
		Packages:     make(map[string]*Package, len(ws.Packages)),
		ImportToPath: ws.ImportToPath,
		FileSet:      ws.FileSet,
	}
	for key, pkg := range ws.Packages {
		cp := *pkg
		cp.Files = make(map[string]*File, len(pkg.Files))
		for name, file := range pkg.Files {
			cp.Files[name] = file
		}
		cp.TestFiles = make(map[string]*File, len(pkg.TestFiles))
		for name, file := range pkg.TestFiles {
			cp.TestFiles[name] = file
		}
		next.Packages[key] = &cp
	}
	return next
}

// FindFile looks a document up by its filesystem path.
func (ws *Workspace) FindFile(path string) *File {
	for _, pkg := range ws.Packages {
		for _, file := range pkg.Files {
			if file.Path == path {
				return file
			}
		}
		for _, file := range pkg.TestFiles {
			if file.Path == path {
				return file
			}
		}
	}
	return nil
}

// FindPackageForFile returns the package owning the document at path.
func (ws *Workspace) FindPackageForFile(path string) *Package {
	for _, pkg := range ws.Packages {
		for _, file := range pkg.Files {
			if file.Path == path {
				return pkg
			}
		}
		for _, file := range pkg.TestFiles {
			if file.Path == path {
				return pkg
			}
		}
	}
	return nil
}

// ReplaceFile swaps a document into the snapshot, returning the package that
// owned it, or nil if the path is unknown.
func (ws *Workspace) ReplaceFile(file *File) *Package {
	for _, pkg := range ws.Packages {
		for name, existing := range pkg.Files {
			if existing.Path == file.Path {
				pkg.Files[name] = file
				return pkg
			}
		}
		for name, existing := range pkg.TestFiles {
			if existing.Path == file.Path {
				pkg.TestFiles[name] = file
				return pkg
			}
		}
	}
	return nil
}
