package types

import (
	"go/ast"
	"go/token"
	"testing"
)

func testWorkspace() *Workspace {
	pkg := &Package{
		Path:      "/ws/foo",
		Name:      "foo",
		Dir:       "/ws/foo",
		Files:     make(map[string]*File),
		TestFiles: make(map[string]*File),
	}
	pkg.Files["foo.go"] = &File{
		Path:    "/ws/foo/foo.go",
		Package: pkg,
		AST:     &ast.File{Name: &ast.Ident{Name: "foo"}},
		Content: []byte("package foo\n"),
	}
	return &Workspace{
		RootPath: "/ws",
		Packages: map[string]*Package{"/ws/foo": pkg},
		FileSet:  token.NewFileSet(),
	}
}

func TestWorkspaceClone_IsolatedFileMaps(t *testing.T) {
	ws := testWorkspace()
	clone := ws.Clone()

	replacement := ws.Packages["/ws/foo"].Files["foo.go"].WithContent(
		[]byte("package foo // edited\n"), &ast.File{Name: &ast.Ident{Name: "foo"}})
	if pkg := clone.ReplaceFile(replacement); pkg == nil {
		t.Fatal("ReplaceFile did not find the document in the clone")
	}

	original := ws.Packages["/ws/foo"].Files["foo.go"]
	if string(original.Content) != "package foo\n" {
		t.Errorf("clone mutation leaked into the original snapshot: %q", original.Content)
	}
	if got := string(clone.Packages["/ws/foo"].Files["foo.go"].Content); got != "package foo // edited\n" {
		t.Errorf("clone did not pick up the replaced document: %q", got)
	}
}

func TestWithContent_LeavesReceiverUntouched(t *testing.T) {
	f := &File{Path: "/ws/foo/foo.go", Content: []byte("a")}
	g := f.WithContent([]byte("b"), nil)
	if string(f.Content) != "a" || string(g.Content) != "b" {
		t.Errorf("WithContent mutated receiver: %q / %q", f.Content, g.Content)
	}
	if g.Path != f.Path {
		t.Errorf("WithContent lost path: %q", g.Path)
	}
}

func TestFindFile(t *testing.T) {
	ws := testWorkspace()
	if ws.FindFile("/ws/foo/foo.go") == nil {
		t.Error("expected to find /ws/foo/foo.go")
	}
	if ws.FindFile("/ws/foo/missing.go") != nil {
		t.Error("expected nil for unknown path")
	}
	if pkg := ws.FindPackageForFile("/ws/foo/foo.go"); pkg == nil || pkg.Name != "foo" {
		t.Errorf("FindPackageForFile returned %v", pkg)
	}
}
