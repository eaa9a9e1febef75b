package types

// Operation represents any refactoring operation
type Operation interface {
	Type() OperationType
	Validate(ws *Workspace) error
	Execute(ws *Workspace) (*RefactoringPlan, error)
	Description() string
}

type OperationType int

const (
	RenameOperation OperationType = iota
	BatchRenameOperation
)

// RenameSymbolRequest represents renaming a symbol
type RenameSymbolRequest struct {
	SymbolName string
	NewName    string
	Package    string // Empty means workspace-wide
	Scope      RenameScope
	Options    RenameOptions
}

type RenameScope int

const (
	PackageScope RenameScope = iota
	WorkspaceScope
)

// RefactoringPlan represents a planned set of changes
type RefactoringPlan struct {
	Operations       []Operation
	Changes          []Change
	FileRenames      []FileRename
	AffectedFiles    []string
	RelatedLocations []RelatedLocation
	Impact           *ImpactAnalysis
	Reversible       bool
}

// Change represents a specific change to be made
type Change struct {
	File        string
	Start       int
	End         int
	OldText     string
	NewText     string
	Description string
}

// FileRename records a document whose filename follows the renamed symbol.
type FileRename struct {
	OldPath string
	NewPath string
}

// ImpactAnalysis shows what will be affected by a refactoring
type ImpactAnalysis struct {
	AffectedPackages []string
	AffectedFiles    []string
	AffectedSymbols  []*Symbol
	PotentialIssues  []Issue
}

type Issue struct {
	Type        IssueType
	Description string
	File        string
	Line        int
	Severity    IssueSeverity
}

type IssueType int

const (
	IssueNameConflict IssueType = iota
	IssueInvalidIdentifier
	IssueOverlappingChange
)

type IssueSeverity int

const (
	Error IssueSeverity = iota
	Warning
	Info
)

// String returns the string representation of IssueSeverity
func (s IssueSeverity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	case Info:
		return "Info"
	default:
		return "Unknown"
	}
}
