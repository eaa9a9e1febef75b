package refactor

import (
	"testing"

	"github.com/mamaar/saferename/pkg/types"
)

func TestSplitQualifiedName(t *testing.T) {
	tests := []struct {
		name       string
		typeName   string
		methodName string
		ok         bool
	}{
		{"Server.Start", "Server", "Start", true},
		{"Greet", "", "", false},
		{".Start", "", "Start", false},
		{"Server.", "Server", "", false},
	}
	for _, tt := range tests {
		typeName, methodName, ok := splitQualifiedName(tt.name)
		if ok != tt.ok {
			t.Errorf("splitQualifiedName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if typeName != tt.typeName || methodName != tt.methodName {
			t.Errorf("splitQualifiedName(%q) = (%q, %q), want (%q, %q)",
				tt.name, typeName, methodName, tt.typeName, tt.methodName)
		}
	}
}

func TestDiffChange(t *testing.T) {
	change, ok := diffChange("f.go", []byte("func Greet() {}"), []byte("func Welcome() {}"), "rename")
	if !ok {
		t.Fatal("expected a change")
	}
	if change.OldText != "Greet" || change.NewText != "Welcome" {
		t.Errorf("diff = %q -> %q, want Greet -> Welcome", change.OldText, change.NewText)
	}
	if change.Start != 5 || change.End != 10 {
		t.Errorf("span = [%d:%d], want [5:10]", change.Start, change.End)
	}

	if _, ok := diffChange("f.go", []byte("same"), []byte("same"), ""); ok {
		t.Error("identical content must not produce a change")
	}

	// Pure insertion collapses to an empty old span.
	change, ok = diffChange("f.go", []byte("ab"), []byte("aXb"), "")
	if !ok {
		t.Fatal("expected a change")
	}
	if change.OldText != "" || change.NewText != "X" {
		t.Errorf("insertion diff = %q -> %q", change.OldText, change.NewText)
	}
}

func TestRenameOperationValidate(t *testing.T) {
	op := &RenameSymbolOperation{Request: types.RenameSymbolRequest{SymbolName: "", NewName: "X"}}
	if err := op.Validate(&types.Workspace{}); err == nil {
		t.Error("expected error for empty symbol name")
	}

	op = &RenameSymbolOperation{Request: types.RenameSymbolRequest{SymbolName: "X", NewName: ""}}
	if err := op.Validate(&types.Workspace{}); err == nil {
		t.Error("expected error for empty replacement")
	}

	batch := &BatchRenameSymbolsOperation{}
	if err := batch.Validate(&types.Workspace{}); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestBatchOptions(t *testing.T) {
	keyA := types.SymbolKey{Name: "a"}
	keyB := types.SymbolKey{Name: "b"}

	// Disagreeing flags cannot share one session.
	_, err := batchOptions([]types.RenameSymbolRequest{
		{SymbolName: "Foo", NewName: "Bar", Options: types.RenameOptions{RenameInStrings: true}},
		{SymbolName: "Baz", NewName: "Qux"},
	})
	if err == nil {
		t.Fatal("expected error for disagreeing options")
	}
	re, ok := err.(*types.RefactorError)
	if !ok || re.Type != types.InvalidOperation {
		t.Errorf("error = %v, want InvalidOperation", err)
	}

	// The allow-lists are unioned; agreeing flags pass through.
	opts, err := batchOptions([]types.RenameSymbolRequest{
		{SymbolName: "Foo", NewName: "Bar", Options: types.RenameOptions{
			RenameInComments:   true,
			NonConflictSymbols: map[types.SymbolKey]bool{keyA: true},
		}},
		{SymbolName: "Baz", NewName: "Qux", Options: types.RenameOptions{
			RenameInComments:   true,
			NonConflictSymbols: map[types.SymbolKey]bool{keyB: true},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !opts.RenameInComments {
		t.Error("agreeing flag dropped")
	}
	if !opts.NonConflictSymbols[keyA] || !opts.NonConflictSymbols[keyB] {
		t.Errorf("allow-list not unioned: %v", opts.NonConflictSymbols)
	}
}

func TestBatchExecuteRejectsDisagreeingOptions(t *testing.T) {
	batch := &BatchRenameSymbolsOperation{Requests: []types.RenameSymbolRequest{
		{SymbolName: "Foo", NewName: "Bar", Options: types.RenameOptions{RenameFile: true}},
		{SymbolName: "Baz", NewName: "Qux"},
	}}
	if _, err := batch.Execute(&types.Workspace{}); err == nil {
		t.Error("expected error for disagreeing per-request options")
	}
}
