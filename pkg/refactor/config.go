package refactor

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mamaar/saferename/pkg/types"
)

// ConfigFileName is looked up in the workspace root.
const ConfigFileName = ".saferename.yaml"

// EngineConfig carries the workspace-level defaults for rename sessions.
// Request options override these per call.
type EngineConfig struct {
	// SkipValidation executes plans without the pre-flight plan check.
	SkipValidation bool `yaml:"skip_validation"`

	RenameInStrings  bool `yaml:"rename_in_strings"`
	RenameInComments bool `yaml:"rename_in_comments"`
	RenameFiles      bool `yaml:"rename_files"`
}

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{}
}

// LoadConfig reads .saferename.yaml from the workspace root. A missing file
// is not an error; a malformed one is.
func LoadConfig(rootPath string) (*EngineConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Join(rootPath, ConfigFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: "failed to read " + ConfigFileName,
			File:    filepath.Join(rootPath, ConfigFileName),
			Cause:   err,
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: "malformed " + ConfigFileName,
			File:    filepath.Join(rootPath, ConfigFileName),
			Cause:   err,
		}
	}
	return cfg, nil
}

// Options translates the config defaults into session options.
func (c *EngineConfig) Options() types.RenameOptions {
	return types.RenameOptions{
		RenameInStrings:  c.RenameInStrings,
		RenameInComments: c.RenameInComments,
		RenameFile:       c.RenameFiles,
	}
}
