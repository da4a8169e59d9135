// Package loader abstracts file access for configuration stores and
// provides format bridges for importing foreign configuration files.
//
// The store never touches the OS directly; everything goes through the
// FileSystem interface so tests (and embedded deployments) can supply an
// in-memory implementation.
package loader

import (
	"io/fs"
	"os"
)

// Loader is the interface for configuration importers. Implementations
// return nil, nil when the source does not exist.
type Loader interface {
	// Load reads configuration from the source and returns a nested map.
	Load() (map[string]any, error)
}

// FileSystem is an abstraction for the file operations a store needs.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte, perm fs.FileMode) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to path.
func (OSFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}
