package refactor

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mamaar/saferename/pkg/types"
)

// Serializer applies plans to disk and round-trips them through YAML so a
// plan can be reviewed before it is executed.
type Serializer struct {
	logger *slog.Logger
}

func NewSerializer(logger *slog.Logger) *Serializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Serializer{logger: logger}
}

// ApplyChanges writes every change to its file. Changes within one file are
// applied back to front so earlier offsets stay valid.
func (s *Serializer) ApplyChanges(ws *types.Workspace, changes []types.Change) error {
	byFile := make(map[string][]types.Change)
	for _, c := range changes {
		byFile[c.File] = append(byFile[c.File], c)
	}

	for file, fileChanges := range byFile {
		content, err := os.ReadFile(file)
		if err != nil {
			return &types.RefactorError{
				Type:    types.FileSystemError,
				Message: fmt.Sprintf("failed to read %s", file),
				File:    file,
				Cause:   err,
			}
		}

		sort.Slice(fileChanges, func(i, j int) bool { return fileChanges[i].Start > fileChanges[j].Start })
		for _, c := range fileChanges {
			if c.Start < 0 || c.End > len(content) || c.Start > c.End {
				return &types.RefactorError{
					Type:    types.InvalidOperation,
					Message: fmt.Sprintf("change span [%d:%d] out of bounds", c.Start, c.End),
					File:    file,
				}
			}
			if string(content[c.Start:c.End]) != c.OldText {
				return &types.RefactorError{
					Type:    types.InvalidOperation,
					Message: fmt.Sprintf("file drifted since planning at [%d:%d]", c.Start, c.End),
					File:    file,
				}
			}
			updated := append([]byte{}, content[:c.Start]...)
			updated = append(updated, c.NewText...)
			updated = append(updated, content[c.End:]...)
			content = updated
		}

		if err := os.WriteFile(file, content, 0o644); err != nil {
			return &types.RefactorError{
				Type:    types.FileSystemError,
				Message: fmt.Sprintf("failed to write %s", file),
				File:    file,
				Cause:   err,
			}
		}
		s.logger.Debug("applied changes", "file", file, "count", len(fileChanges))
	}
	return nil
}

// ApplyFileRenames moves files whose names track a renamed symbol.
func (s *Serializer) ApplyFileRenames(renames []types.FileRename) error {
	for _, fr := range renames {
		if err := os.Rename(fr.OldPath, fr.NewPath); err != nil {
			return &types.RefactorError{
				Type:    types.FileSystemError,
				Message: fmt.Sprintf("failed to rename %s to %s", fr.OldPath, fr.NewPath),
				File:    fr.OldPath,
				Cause:   err,
			}
		}
		s.logger.Info("renamed file", "from", fr.OldPath, "to", fr.NewPath)
	}
	return nil
}

// planDocument is the serialized shape of a plan. Operations are not
// round-tripped; a loaded plan is execute-only.
type planDocument struct {
	ID            string           `yaml:"id"`
	CreatedAt     time.Time        `yaml:"created_at"`
	Changes       []changeDocument `yaml:"changes"`
	FileRenames   []renameDocument `yaml:"file_renames,omitempty"`
	AffectedFiles []string         `yaml:"affected_files"`
	Reversible    bool             `yaml:"reversible"`
}

type changeDocument struct {
	File        string `yaml:"file"`
	Start       int    `yaml:"start"`
	End         int    `yaml:"end"`
	OldText     string `yaml:"old_text"`
	NewText     string `yaml:"new_text"`
	Description string `yaml:"description,omitempty"`
}

type renameDocument struct {
	OldPath string `yaml:"old_path"`
	NewPath string `yaml:"new_path"`
}

// SavePlan writes the plan as YAML, stamped with a fresh id.
func (s *Serializer) SavePlan(plan *types.RefactoringPlan, path string) (string, error) {
	doc := planDocument{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		AffectedFiles: plan.AffectedFiles,
		Reversible:    plan.Reversible,
	}
	for _, c := range plan.Changes {
		doc.Changes = append(doc.Changes, changeDocument(c))
	}
	for _, fr := range plan.FileRenames {
		doc.FileRenames = append(doc.FileRenames, renameDocument(fr))
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &types.RefactorError{
			Type:    types.FileSystemError,
			Message: "failed to write plan",
			File:    path,
			Cause:   err,
		}
	}
	return doc.ID, nil
}

// LoadPlan reads a previously saved plan.
func (s *Serializer) LoadPlan(path string) (*types.RefactoringPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: "failed to read plan",
			File:    path,
			Cause:   err,
		}
	}
	var doc planDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: "malformed plan file",
			File:    path,
			Cause:   err,
		}
	}

	plan := &types.RefactoringPlan{
		AffectedFiles: doc.AffectedFiles,
		Reversible:    doc.Reversible,
	}
	for _, c := range doc.Changes {
		plan.Changes = append(plan.Changes, types.Change(c))
	}
	for _, fr := range doc.FileRenames {
		plan.FileRenames = append(plan.FileRenames, types.FileRename(fr))
	}
	return plan, nil
}
