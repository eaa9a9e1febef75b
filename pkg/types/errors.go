package types

import "fmt"

// RefactorError represents errors in refactoring operations
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

type ErrorType int

const (
	ParseError ErrorType = iota
	SymbolNotFound
	InvalidOperation
	NameConflict
	CyclicDependency
	FileSystemError
	InternalError
)

// ValidationError represents validation failures
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d issues", len(e.Issues))
}

// ConflictContextError reports the invariant violation of two rename contexts
// claiming the same text span with different replacement text. It names the
// offending span and both replacements; the session never resolves this by
// picking one.
type ConflictContextError struct {
	File        string
	Span        Span
	Replacement string
	Existing    string
}

func (e *ConflictContextError) Error() string {
	return fmt.Sprintf("%s: span %s already has rename context %q, refusing to overwrite with %q",
		e.File, e.Span, e.Existing, e.Replacement)
}

// UnrecoverableError wraps an unexpected internal failure. A half-applied
// rename is worse than a rejected one, so the session is abandoned whenever
// one of these surfaces; callers must propagate it, never retry.
type UnrecoverableError struct {
	Op    string
	Cause error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("rename session failed in %s: %v", e.Op, e.Cause)
}

func (e *UnrecoverableError) Unwrap() error {
	return e.Cause
}

// Fatal wraps err as unrecoverable unless it already is.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*UnrecoverableError); ok {
		return err
	}
	return &UnrecoverableError{Op: op, Cause: err}
}
