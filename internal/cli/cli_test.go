package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	// cobra's Run prints through fmt, not the command writer, so only check
	// the command succeeded and left no error output behind.
	if strings.Contains(out, "Error") {
		t.Errorf("unexpected error output: %q", out)
	}
}

func TestBatchRejectsMalformedPair(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runCommand(t, "--workspace", dir, "batch", "NoEqualsSign")
	if err == nil {
		t.Fatal("expected malformed pair to fail")
	}
	if !strings.Contains(err.Error(), "expected old=new") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRenameCommandPreviewsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"go.mod":   "module example.com/demo\n\ngo 1.25\n",
		"greet.go": "package demo\n\nfunc Greet() string {\n\treturn \"hi\"\n}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := runCommand(t, "--workspace", dir, "rename", "Greet", "Welcome")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}

	// Without --apply the file must be untouched.
	content, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "Greet") {
		t.Errorf("preview must not modify files:\n%s", content)
	}
}

func TestRenameCommandApply(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"go.mod":   "module example.com/demo\n\ngo 1.25\n",
		"greet.go": "package demo\n\nfunc Greet() string {\n\treturn \"hi\"\n}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := runCommand(t, "--workspace", dir, "rename", "Greet", "Welcome", "--apply")
	if err != nil {
		t.Fatalf("rename --apply: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "Welcome") {
		t.Errorf("apply did not rewrite the file:\n%s", content)
	}
}
