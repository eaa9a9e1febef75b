package types

import (
	"errors"
	"strings"
	"testing"
)

func TestRefactorError(t *testing.T) {
	err := &RefactorError{
		Type:    SymbolNotFound,
		Message: "symbol not found: Foo",
		File:    "/ws/foo/foo.go",
		Line:    3,
		Column:  7,
	}
	if got := err.Error(); got != "/ws/foo/foo.go:3:7: symbol not found: Foo" {
		t.Errorf("unexpected message: %q", got)
	}

	bare := &RefactorError{Message: "no position"}
	if bare.Error() != "no position" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}

func TestConflictContextError_NamesBothContexts(t *testing.T) {
	err := &ConflictContextError{
		File:        "/ws/foo/foo.go",
		Span:        Span{10, 13},
		Replacement: "bar",
		Existing:    "baz",
	}
	msg := err.Error()
	for _, want := range []string{"[10,13)", `"bar"`, `"baz"`, "/ws/foo/foo.go"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestFatal(t *testing.T) {
	if Fatal("resolve", nil) != nil {
		t.Error("Fatal(nil) must be nil")
	}

	cause := errors.New("boom")
	err := Fatal("resolve", cause)
	var unrec *UnrecoverableError
	if !errors.As(err, &unrec) {
		t.Fatalf("expected UnrecoverableError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Fatal must keep the cause in the chain")
	}

	// Wrapping twice must not nest.
	if again := Fatal("outer", err); again != err {
		t.Errorf("Fatal re-wrapped an UnrecoverableError: %v", again)
	}
}
