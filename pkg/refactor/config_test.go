package refactor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("missing config must not be an error: %v", err)
	}
	if cfg.SkipValidation || cfg.RenameInStrings || cfg.RenameInComments || cfg.RenameFiles {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := "rename_in_comments: true\nrename_files: true\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.RenameInComments || !cfg.RenameFiles {
		t.Errorf("config not applied: %+v", cfg)
	}
	if cfg.RenameInStrings {
		t.Error("rename_in_strings should default to false")
	}

	opts := cfg.Options()
	if !opts.RenameInComments || !opts.RenameFile || opts.RenameInStrings {
		t.Errorf("Options() mismatch: %+v", opts)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("rename_files: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("expected malformed config to fail")
	}
}
