package analysis

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestParseWorkspace(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"go.mod":          "module example.com/demo\n\ngo 1.25\n",
		"root.go":         "package demo\n\nfunc Root() {}\n",
		"sub/sub.go":      "package sub\n\nfunc Sub() {}\n",
		"sub/sub_test.go": "package sub\n\nimport \"testing\"\n\nfunc TestSub(t *testing.T) {}\n",
	})

	parser := NewParser(discardLogger())
	ws, err := parser.ParseWorkspace(dir)
	if err != nil {
		t.Fatalf("ParseWorkspace: %v", err)
	}

	if ws.Module == nil || ws.Module.Path != "example.com/demo" {
		t.Errorf("module not parsed: %+v", ws.Module)
	}
	if len(ws.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(ws.Packages))
	}

	sub := ws.Packages[filepath.Join(dir, "sub")]
	if sub == nil {
		t.Fatal("sub package missing")
	}
	if sub.ImportPath != "example.com/demo/sub" {
		t.Errorf("sub import path = %q", sub.ImportPath)
	}
	if len(sub.Files) != 1 || len(sub.TestFiles) != 1 {
		t.Errorf("sub files = %d, test files = %d", len(sub.Files), len(sub.TestFiles))
	}
	if got := ws.ImportToPath["example.com/demo/sub"]; got != sub.Path {
		t.Errorf("ImportToPath mapping = %q, want %q", got, sub.Path)
	}
}

func TestParseWorkspaceSkipsVendorAndHidden(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"go.mod":         "module example.com/demo\n\ngo 1.25\n",
		"a.go":           "package demo\n",
		"vendor/v/v.go":  "package v\n",
		".hidden/h/h.go": "package h\n",
	})

	parser := NewParser(discardLogger())
	ws, err := parser.ParseWorkspace(dir)
	if err != nil {
		t.Fatalf("ParseWorkspace: %v", err)
	}
	for path := range ws.Packages {
		rel, _ := filepath.Rel(dir, path)
		if rel != "." {
			t.Errorf("unexpected package parsed at %s", rel)
		}
	}
}

func TestParseFileContent(t *testing.T) {
	parser := NewParser(discardLogger())
	file, err := parser.ParseFileContent("mem.go", []byte("package demo\n\nfunc F() {}\n"))
	if err != nil {
		t.Fatalf("ParseFileContent: %v", err)
	}
	if file.AST == nil || file.AST.Name.Name != "demo" {
		t.Error("AST missing or wrong package name")
	}
	if string(file.Content) != "package demo\n\nfunc F() {}\n" {
		t.Error("content not retained")
	}

	if _, err := parser.ParseFileContent("bad.go", []byte("package {\n")); err == nil {
		t.Error("expected parse error for invalid source")
	}
}

func TestComputeImportPath(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"go.mod": "module example.com/demo\n\ngo 1.25\n",
		"a.go":   "package demo\n",
	})

	parser := NewParser(discardLogger())
	ws, err := parser.ParseWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}

	if got := ComputeImportPath(ws, dir); got != "example.com/demo" {
		t.Errorf("root import path = %q", got)
	}
	if got := ComputeImportPath(ws, filepath.Join(dir, "pkg", "x")); got != "example.com/demo/pkg/x" {
		t.Errorf("nested import path = %q", got)
	}
}

func TestTypeCheckingIsLazyAndInvalidable(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"go.mod":   "module example.com/demo\n\ngo 1.25\n",
		"a.go":     "package demo\n\nfunc A() {}\n",
		"sub/b.go": "package sub\n\nimport \"example.com/demo\"\n\nfunc B() { demo.A() }\n",
	})

	parser := NewParser(discardLogger())
	ws, err := parser.ParseWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}

	root := ws.Packages[dir]
	sub := ws.Packages[filepath.Join(dir, "sub")]
	if root.TypesPkg != nil || sub.TypesPkg != nil {
		t.Fatal("type info must not exist before EnsureTypeChecked")
	}

	parser.EnsureTypeChecked(ws, sub)
	if sub.TypesPkg == nil {
		t.Fatal("sub not type-checked")
	}

	// Invalidating the root must also drop sub, which imports it.
	parser.InvalidateTypes(ws, root)
	if sub.TypesPkg != nil {
		t.Error("dependent package kept stale type info")
	}
}

// Lazy checking is triggered from parallel conflict identification, so
// concurrent callers must not trample each other's writes. Run with -race.
func TestEnsureTypeCheckedConcurrent(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"go.mod":   "module example.com/demo\n\ngo 1.25\n",
		"a.go":     "package demo\n\nfunc A() {}\n",
		"sub/b.go": "package sub\n\nimport \"example.com/demo\"\n\nfunc B() { demo.A() }\n",
	})

	parser := NewParser(discardLogger())
	ws, err := parser.ParseWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}

	root := ws.Packages[dir]
	sub := ws.Packages[filepath.Join(dir, "sub")]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Checking sub pulls in root through the importer.
			parser.EnsureTypeChecked(ws, sub)
			parser.EnsureTypeChecked(ws, root)
		}()
	}
	wg.Wait()

	if root.TypesPkg == nil || sub.TypesPkg == nil {
		t.Fatal("packages not type-checked after concurrent callers")
	}
}
