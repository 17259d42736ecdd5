package provenance

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/errors"
)

// File represents a provenance report stored on disk.
type File struct {
	RunID  string  `yaml:"run_id,omitempty"`
	Report *Report `yaml:"provenance"`
}

// Save writes the report as YAML, creating the parent directory.
func Save(fs afero.Fs, path string, file *File) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads a provenance file.
// Returns nil, nil if the file doesn't exist (not an error).
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &f, nil
}
