package analysis

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mamaar/saferename/pkg/types"
)

// GoParser handles Go code parsing and AST management.
type GoParser struct {
	fileSet *token.FileSet
	logger  *slog.Logger

	// typeMu serializes type-checking. Checking mutates shared state
	// (Package.TypesPkg, Package.TypesInfo, the stdlib importer) and callers
	// resolve from multiple goroutines.
	typeMu   sync.Mutex
	importer *workspaceImporter
}

func NewParser(logger *slog.Logger) *GoParser {
	return &GoParser{
		fileSet: token.NewFileSet(),
		logger:  logger,
	}
}

// FileSet exposes the parser's position table.
func (p *GoParser) FileSet() *token.FileSet {
	return p.fileSet
}

// ParseFile parses a single Go file from disk.
func (p *GoParser) ParseFile(filename string) (*types.File, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}
	return p.ParseFileContent(filename, content)
}

// ParseFileContent parses the given text as the document at filename. The
// rewriter uses this to turn rewritten text back into a tree; each call
// registers a fresh token.File so positions of successive versions never
// collide.
func (p *GoParser) ParseFileContent(filename string, content []byte) (*types.File, error) {
	astFile, err := parser.ParseFile(p.fileSet, filename, content, parser.ParseComments)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("failed to parse file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}

	return &types.File{
		Path:    filename,
		AST:     astFile,
		Content: content,
	}, nil
}

// ParsePackage parses all Go files in a package directory.
func (p *GoParser) ParsePackage(dir string) (*types.Package, error) {
	pkg := &types.Package{
		Dir:       dir,
		Files:     make(map[string]*types.File),
		TestFiles: make(map[string]*types.File),
		Imports:   make([]string, 0),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip subdirectories for package parsing
		if d.IsDir() && path != dir {
			return filepath.SkipDir
		}

		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		file, err := p.ParseFile(path)
		if err != nil {
			return err
		}

		file.Package = pkg

		if strings.HasSuffix(path, "_test.go") {
			pkg.TestFiles[filepath.Base(path)] = file
		} else {
			pkg.Files[filepath.Base(path)] = file

			// Set package name and path from first non-test file
			if pkg.Name == "" {
				pkg.Name = file.AST.Name.Name
				pkg.Path = p.inferPackagePath(dir, file.AST.Name.Name)
			}

			for _, imp := range file.AST.Imports {
				importPath := strings.Trim(imp.Path.Value, "\"")
				if !contains(pkg.Imports, importPath) {
					pkg.Imports = append(pkg.Imports, importPath)
				}
			}
		}

		return nil
	})

	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to parse package: %v", err),
			File:    dir,
			Cause:   err,
		}
	}

	if pkg.Name == "" {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: "no non-test Go files found in package",
			File:    dir,
		}
	}

	return pkg, nil
}

// ParseWorkspace parses an entire Go workspace/module.
// Package directories are discovered sequentially, then parsed in parallel
// using a bounded worker pool (runtime.NumCPU goroutines).
func (p *GoParser) ParseWorkspace(rootPath string) (*types.Workspace, error) {
	p.logger.Info("parsing workspace", "path", rootPath)

	absRootPath, err := filepath.Abs(rootPath)
	if err != nil {
		p.logger.Error("failed to get absolute path", "path", rootPath, "err", err)
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to get absolute path for workspace: %v", err),
			File:    rootPath,
		}
	}

	workspace := &types.Workspace{
		RootPath:     absRootPath,
		Packages:     make(map[string]*types.Package),
		ImportToPath: make(map[string]string),
		FileSet:      p.fileSet,
	}

	// Try to find and parse go.mod
	goModPath := filepath.Join(absRootPath, "go.mod")
	if modContent, err := os.ReadFile(goModPath); err == nil {
		module, err := p.parseGoMod(modContent)
		if err != nil {
			return nil, err
		}
		workspace.Module = module
	}

	// Phase 1: Discover package directories (sequential; the filesystem walk is I/O bound and fast)
	var pkgDirs []string
	err = filepath.WalkDir(absRootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden directories and vendor
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "vendor" {
				return filepath.SkipDir
			}
		}

		if d.IsDir() {
			hasGoFiles, err := p.hasGoFiles(path)
			if err != nil {
				return err
			}
			if hasGoFiles {
				pkgDirs = append(pkgDirs, path)
			}
		}

		return nil
	})

	if err != nil {
		p.logger.Error("workspace discovery failed", "path", rootPath, "err", err)
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to parse workspace: %v", err),
			File:    rootPath,
			Cause:   err,
		}
	}

	p.logger.Debug("discovered packages", "count", len(pkgDirs))

	// Phase 2: Parse packages in parallel with bounded concurrency.
	// Each package parse is independent (reads its own files, creates its own
	// AST nodes). The shared fileSet is safe for concurrent use via its
	// internal mutex.
	type pkgResult struct {
		pkg *types.Package
		err error
	}

	results := make([]pkgResult, len(pkgDirs))
	workers := runtime.NumCPU()
	if workers > len(pkgDirs) {
		workers = len(pkgDirs)
	}

	var wg sync.WaitGroup
	dirCh := make(chan int, len(pkgDirs))

	for i := range pkgDirs {
		dirCh <- i
	}
	close(dirCh)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range dirCh {
				pkg, err := p.ParsePackage(pkgDirs[idx])
				results[idx] = pkgResult{pkg: pkg, err: err}
			}
		}()
	}

	wg.Wait()

	for i, res := range results {
		if res.err != nil {
			// Log and continue: one broken directory must not sink the workspace.
			p.logger.Warn("failed to parse package", "dir", pkgDirs[i], "err", res.err)
			continue
		}
		workspace.Packages[res.pkg.Path] = res.pkg
	}

	// After parsing packages, build import path mapping
	if workspace.Module != nil {
		for fsPath, pkg := range workspace.Packages {
			importPath := computeImportPath(workspace, fsPath)
			pkg.ImportPath = importPath
			workspace.ImportToPath[importPath] = fsPath
		}
	}

	p.logger.Info("workspace parsed", "packages", len(workspace.Packages))

	return workspace, nil
}

// Helper functions

func (p *GoParser) parseGoMod(content []byte) (*types.Module, error) {
	lines := strings.Split(string(content), "\n")
	module := &types.Module{
		GoMod: string(content),
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			module.Path = strings.TrimSpace(strings.TrimPrefix(line, "module"))
		}
	}

	return module, nil
}

func (p *GoParser) inferPackagePath(dir, packageName string) string {
	// Return the absolute filesystem path for now.
	// The proper import path is computed after workspace parsing.
	abs, err := filepath.Abs(dir)
	if err != nil {
		return packageName
	}
	return abs
}

// ComputeImportPath computes the Go import path for a package given its filesystem path.
func ComputeImportPath(ws *types.Workspace, fsPath string) string {
	return computeImportPath(ws, fsPath)
}

func computeImportPath(ws *types.Workspace, fsPath string) string {
	if ws.Module == nil {
		return ""
	}
	relPath, err := filepath.Rel(ws.RootPath, fsPath)
	if err != nil || relPath == "." {
		return ws.Module.Path
	}
	return ws.Module.Path + "/" + filepath.ToSlash(relPath)
}

func (p *GoParser) hasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
			return true, nil
		}
	}

	return false, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// EnsureTypeChecked runs type-checking on a package if it hasn't been done yet.
// This enables lazy/on-demand type-checking instead of eager upfront checking.
// Safe for concurrent use.
func (p *GoParser) EnsureTypeChecked(ws *types.Workspace, pkg *types.Package) {
	p.typeMu.Lock()
	defer p.typeMu.Unlock()
	if pkg.TypesPkg != nil {
		return
	}
	p.typeCheckLocked(ws, pkg)
}

// InvalidateTypes drops type-checking results for pkg and every workspace
// package that imports it, directly or transitively. Called after a rewrite
// so the next resolution sees the renamed shape.
func (p *GoParser) InvalidateTypes(ws *types.Workspace, pkg *types.Package) {
	p.typeMu.Lock()
	defer p.typeMu.Unlock()
	pkg.InvalidateTypes()
	for _, other := range ws.Packages {
		if other == pkg || other.TypesPkg == nil {
			continue
		}
		if importsTransitively(ws, other, pkg, make(map[string]bool)) {
			other.InvalidateTypes()
		}
	}
}

func importsTransitively(ws *types.Workspace, from, to *types.Package, seen map[string]bool) bool {
	if seen[from.Path] {
		return false
	}
	seen[from.Path] = true
	for _, imp := range from.Imports {
		fsPath, ok := ws.ImportToPath[imp]
		if !ok {
			continue
		}
		if fsPath == to.Path {
			return true
		}
		if dep, ok := ws.Packages[fsPath]; ok && importsTransitively(ws, dep, to, seen) {
			return true
		}
	}
	return false
}

// TypeCheckPackage runs go/types type-checking on a package.
// Results are stored in pkg.TypesInfo and pkg.TypesPkg.
// Errors are silently ignored: packages that fail type-checking
// will have nil TypesInfo and fall back to AST-based inference.
// Safe for concurrent use.
func (p *GoParser) TypeCheckPackage(ws *types.Workspace, pkg *types.Package) {
	p.typeMu.Lock()
	defer p.typeMu.Unlock()
	p.typeCheckLocked(ws, pkg)
}

// typeCheckLocked is TypeCheckPackage under typeMu. The importer re-enters it
// on the checking goroutine for workspace dependencies, so it must not lock.
func (p *GoParser) typeCheckLocked(ws *types.Workspace, pkg *types.Package) {
	var files []*ast.File
	for _, f := range pkg.Files {
		if f.AST != nil {
			files = append(files, f.AST)
		}
	}
	if len(files) == 0 {
		return
	}
	// The importer is bound to the snapshot being checked (rewritten clones
	// carry different documents than the base), but the stdlib fallback is
	// shared so stdlib type identities stay consistent across calls.
	if p.importer == nil {
		p.importer = &workspaceImporter{parser: p}
	}
	imp := &workspaceImporter{ws: ws, fset: ws.FileSet, parser: p, std: p.importer.stdImporter()}

	conf := gotypes.Config{
		Importer: imp,
		Error:    func(err error) {}, // silently ignore type errors
	}
	info := &gotypes.Info{
		Types:     make(map[ast.Expr]gotypes.TypeAndValue),
		Defs:      make(map[*ast.Ident]gotypes.Object),
		Uses:      make(map[*ast.Ident]gotypes.Object),
		Implicits: make(map[ast.Node]gotypes.Object),
	}

	typesPkg, err := conf.Check(pkg.ImportPath, ws.FileSet, files, info)
	if err != nil {
		p.logger.Debug("type-checking failed (falling back to AST inference)", "package", pkg.ImportPath, "err", err)
		// Still store partial results; go/types populates info even on errors
		pkg.TypesInfo = info
		return
	}
	pkg.TypesInfo = info
	pkg.TypesPkg = typesPkg
}

// workspaceImporter implements go/types.Importer using workspace-local packages
// with fallback to source-based importing for stdlib/external packages.
type workspaceImporter struct {
	ws     *types.Workspace
	fset   *token.FileSet
	parser *GoParser
	std    gotypes.Importer
}

func (imp *workspaceImporter) stdImporter() gotypes.Importer {
	if imp.std == nil {
		imp.std = importer.Default()
	}
	return imp.std
}

func (imp *workspaceImporter) Import(path string) (*gotypes.Package, error) {
	// Check if this is a workspace-local package
	if fsPath, ok := imp.ws.ImportToPath[path]; ok {
		if pkg, ok := imp.ws.Packages[fsPath]; ok {
			if pkg.TypesPkg != nil {
				return pkg.TypesPkg, nil
			}
			// Type-check this dependency first (lazy/recursive). Check runs
			// under typeMu on this goroutine, so go straight to the locked
			// body.
			imp.parser.typeCheckLocked(imp.ws, pkg)
			if pkg.TypesPkg != nil {
				return pkg.TypesPkg, nil
			}
		}
	}
	// Fall back to stdlib/export data
	return imp.stdImporter().Import(path)
}
