package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/graph"
	"github.com/mamaar/saferename/pkg/types"
)

// WorkspaceUpdater keeps a loaded workspace current while files change on
// disk, so a rename session started after an edit sees the edited code. Type
// information is dropped eagerly and rebuilt lazily by the next session.
type WorkspaceUpdater struct {
	workspace *types.Workspace
	parser    *analysis.GoParser
	resolver  *analysis.SymbolResolver
	logger    *slog.Logger
}

func NewUpdater(
	ws *types.Workspace,
	parser *analysis.GoParser,
	resolver *analysis.SymbolResolver,
	logger *slog.Logger,
) *WorkspaceUpdater {
	return &WorkspaceUpdater{
		workspace: ws,
		parser:    parser,
		resolver:  resolver,
		logger:    logger,
	}
}

// fileRef locates one changed file within its package directory.
type fileRef struct {
	path string
	base string
	test bool
}

func refFor(path string) fileRef {
	base := filepath.Base(path)
	return fileRef{path: path, base: base, test: strings.HasSuffix(base, "_test.go")}
}

// HandleChanges applies a debounced batch of file events to the workspace
// model. Events in the same directory update the same package.
func (u *WorkspaceUpdater) HandleChanges(events []ChangeEvent) {
	start := time.Now()

	dirs := make(map[string]int)
	for _, ev := range events {
		dir := filepath.Dir(ev.Path)
		dirs[dir]++
		ref := refFor(ev.Path)

		switch {
		case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			u.applyDelete(dir, ref)
		case ev.Op&fsnotify.Create != 0:
			u.applyCreate(dir, ref)
		case ev.Op&fsnotify.Write != 0:
			u.applyModify(dir, ref)
		}
	}

	u.logger.Info("batch complete",
		"dirs", len(dirs),
		"files", len(events),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// applyModify re-parses the file in place and refreshes its package.
func (u *WorkspaceUpdater) applyModify(dir string, ref fileRef) {
	start := time.Now()

	pkg := u.FindPackage(dir)
	if pkg == nil {
		u.logger.Warn("modify for unknown package, treating as create", "dir", dir, "file", ref.base)
		u.applyCreate(dir, ref)
		return
	}
	file, err := u.parser.ParseFile(ref.path)
	if err != nil {
		u.logger.Error("modify: parse failed", "file", ref.path, "err", err)
		return
	}
	u.attach(pkg, ref, file)
	u.refresh(pkg, "modify", ref.path, start)
}

// applyCreate parses a new file into its package, growing the workspace with
// a fresh package when the directory is new.
func (u *WorkspaceUpdater) applyCreate(dir string, ref fileRef) {
	start := time.Now()

	// Create events can race with deletes.
	if _, err := os.Stat(ref.path); os.IsNotExist(err) {
		return
	}
	file, err := u.parser.ParseFile(ref.path)
	if err != nil {
		u.logger.Error("create: parse failed", "file", ref.path, "err", err)
		return
	}

	pkg := u.FindPackage(dir)
	if pkg == nil {
		if pkg = u.registerPackage(dir, ref, file); pkg != nil {
			u.logger.Info("create: new package",
				"dir", dir,
				"importPath", pkg.ImportPath,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
		}
		return
	}

	u.attach(pkg, ref, file)
	u.refresh(pkg, "create", ref.path, start)
}

// applyDelete drops the file; a package with no non-test files left is
// removed from the workspace entirely.
func (u *WorkspaceUpdater) applyDelete(dir string, ref fileRef) {
	start := time.Now()

	pkg := u.FindPackage(dir)
	if pkg == nil {
		return
	}
	if ref.test {
		delete(pkg.TestFiles, ref.base)
	} else {
		delete(pkg.Files, ref.base)
	}

	if len(pkg.Files) == 0 {
		delete(u.workspace.Packages, pkg.Path)
		if pkg.ImportPath != "" {
			delete(u.workspace.ImportToPath, pkg.ImportPath)
		}
		u.logger.Info("delete: removed empty package",
			"dir", dir,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return
	}

	u.recollectImports(pkg)
	u.refresh(pkg, "delete", ref.path, start)
}

// attach places the parsed file into the package, keeping test files out of
// the import set.
func (u *WorkspaceUpdater) attach(pkg *types.Package, ref fileRef, file *types.File) {
	file.Package = pkg
	if ref.test {
		pkg.TestFiles[ref.base] = file
		return
	}
	pkg.Files[ref.base] = file
	u.recollectImports(pkg)
}

// refresh drops stale type info for the package and everything that imports
// it, rebuilds the symbol table, and re-checks the import graph for cycles so
// a later rename session doesn't trip over them mid-plan.
func (u *WorkspaceUpdater) refresh(pkg *types.Package, action, path string, start time.Time) {
	u.parser.InvalidateTypes(u.workspace, pkg)

	st, err := u.resolver.BuildSymbolTable(pkg)
	if err != nil {
		u.logger.Error(action+": symbol table rebuild failed", "file", path, "err", err)
		return
	}
	if _, err := graph.BuildPackageGraph(u.workspace).RenameOrder(); err != nil {
		u.logger.Warn(action+": import graph not renameable", "file", path, "err", err)
	}

	u.logger.Info(action+": re-evaluated",
		"file", path,
		"package", pkg.ImportPath,
		"symbols", countSymbols(st),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// registerPackage adds a package for a directory the workspace has not seen.
// A lone test file cannot name the package, so registration waits for the
// first non-test file.
func (u *WorkspaceUpdater) registerPackage(dir string, ref fileRef, file *types.File) *types.Package {
	if ref.test {
		return nil
	}

	pkg := &types.Package{
		Dir:       dir,
		Path:      dir,
		Name:      file.AST.Name.Name,
		Files:     map[string]*types.File{ref.base: file},
		TestFiles: make(map[string]*types.File),
		Imports:   make([]string, 0),
	}
	file.Package = pkg
	u.recollectImports(pkg)

	pkg.ImportPath = analysis.ComputeImportPath(u.workspace, dir)
	u.workspace.Packages[pkg.Path] = pkg
	if pkg.ImportPath != "" {
		u.workspace.ImportToPath[pkg.ImportPath] = pkg.Path
	}

	if _, err := u.resolver.BuildSymbolTable(pkg); err != nil {
		u.logger.Error("create: symbol table build failed", "dir", dir, "err", err)
	}
	return pkg
}

// FindPackage returns the workspace package rooted at dir, or nil.
func (u *WorkspaceUpdater) FindPackage(dir string) *types.Package {
	for _, pkg := range u.workspace.Packages {
		if pkg.Dir == dir || pkg.Path == dir {
			return pkg
		}
	}
	return nil
}

// recollectImports rebuilds the package import list from its file ASTs.
func (u *WorkspaceUpdater) recollectImports(pkg *types.Package) {
	seen := make(map[string]bool)
	var imports []string
	for _, f := range pkg.Files {
		for _, imp := range f.AST.Imports {
			p := strings.Trim(imp.Path.Value, `"`)
			if !seen[p] {
				seen[p] = true
				imports = append(imports, p)
			}
		}
	}
	pkg.Imports = imports
}

func countSymbols(st *types.SymbolTable) int {
	if st == nil {
		return 0
	}
	n := len(st.Functions) + len(st.Types) + len(st.Variables) + len(st.Constants)
	for _, ms := range st.Methods {
		n += len(ms)
	}
	return n
}

// PackageCount returns the number of packages currently in the workspace.
func (u *WorkspaceUpdater) PackageCount() int {
	return len(u.workspace.Packages)
}
