package loader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/pelletier/go-toml/v2"
)

// TOML imports a TOML file as a nested map, suitable for merging into a
// script store. It is a one-way migration bridge; the store persists in
// the script dialect only.
type TOML struct {
	fs   FileSystem
	path string
}

// NewTOML creates a TOML importer for the given path.
func NewTOML(path string) *TOML {
	return &TOML{fs: DefaultFS(), path: path}
}

// NewTOMLWithFS creates a TOML importer with a custom file system.
func NewTOMLWithFS(fsys FileSystem, path string) *TOML {
	return &TOML{fs: fsys, path: path}
}

// Load reads and decodes the file. A missing file is not an error; it
// yields nil, nil.
func (t *TOML) Load() (map[string]any, error) {
	data, err := t.fs.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", t.path, err)
	}

	out := make(map[string]any)
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", t.path, err)
	}
	return out, nil
}

// Ensure TOML implements Loader.
var _ Loader = (*TOML)(nil)
