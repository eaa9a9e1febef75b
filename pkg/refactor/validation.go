package refactor

import (
	"fmt"
	"sort"

	"github.com/mamaar/saferename/pkg/types"
)

// Validator runs the pre-flight checks on a plan before it touches disk.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePlan rejects plans that would corrupt files or knowingly break the
// program: overlapping edits, duplicate file-rename targets, and unresolved
// conflicts all block execution.
func (v *Validator) ValidatePlan(plan *types.RefactoringPlan) error {
	if plan == nil {
		return &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "cannot validate a nil plan",
		}
	}

	var issues []types.Issue
	issues = append(issues, v.overlappingChanges(plan.Changes)...)
	issues = append(issues, v.conflictIssues(plan.RelatedLocations)...)
	issues = append(issues, v.fileRenameIssues(plan.FileRenames)...)

	for _, issue := range issues {
		if issue.Severity == types.Error {
			return &types.ValidationError{Issues: issues}
		}
	}
	return nil
}

func (v *Validator) overlappingChanges(changes []types.Change) []types.Issue {
	byFile := make(map[string][]types.Change)
	for _, c := range changes {
		byFile[c.File] = append(byFile[c.File], c)
	}

	var issues []types.Issue
	for file, fileChanges := range byFile {
		sort.Slice(fileChanges, func(i, j int) bool { return fileChanges[i].Start < fileChanges[j].Start })
		for i := 1; i < len(fileChanges); i++ {
			if fileChanges[i-1].End > fileChanges[i].Start {
				issues = append(issues, types.Issue{
					Type:        types.IssueOverlappingChange,
					Description: fmt.Sprintf("changes at [%d:%d] and [%d:%d] overlap", fileChanges[i-1].Start, fileChanges[i-1].End, fileChanges[i].Start, fileChanges[i].End),
					File:        file,
					Severity:    types.Error,
				})
			}
		}
	}
	return issues
}

func (v *Validator) conflictIssues(locations []types.RelatedLocation) []types.Issue {
	var issues []types.Issue
	for _, loc := range locations {
		if !loc.Type.IsConflict() {
			continue
		}
		severity := types.Warning
		if loc.Type == types.UnresolvableConflict || loc.Type == types.UnresolvedConflict {
			severity = types.Error
		}
		issues = append(issues, types.Issue{
			Type:        types.IssueNameConflict,
			Description: fmt.Sprintf("%s at %s", loc.Type, loc.Span),
			File:        loc.File,
			Severity:    severity,
		})
	}
	return issues
}

func (v *Validator) fileRenameIssues(renames []types.FileRename) []types.Issue {
	targets := make(map[string]bool)
	var issues []types.Issue
	for _, fr := range renames {
		if targets[fr.NewPath] {
			issues = append(issues, types.Issue{
				Type:        types.IssueOverlappingChange,
				Description: fmt.Sprintf("two files renamed to %s", fr.NewPath),
				File:        fr.NewPath,
				Severity:    types.Error,
			})
		}
		targets[fr.NewPath] = true
	}
	return issues
}
