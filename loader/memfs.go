package loader

import (
	"io/fs"
	"path"
	"sync"
	"time"
)

// MemFS is an in-memory FileSystem for tests.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	mtime map[string]time.Time
}

// NewMemFS creates an empty in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string][]byte),
		mtime: make(map[string]time.Time),
	}
}

// ReadFile reads the entire file at path.
func (m *MemFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteFile stores data under name.
func (m *MemFS) WriteFile(name string, data []byte, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[name] = stored
	m.mtime[name] = time.Now()
	return nil
}

// Stat returns file info for name.
func (m *MemFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return memFileInfo{name: path.Base(name), size: int64(len(data)), mtime: m.mtime[name]}, nil
}

type memFileInfo struct {
	name  string
	size  int64
	mtime time.Time
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (i memFileInfo) ModTime() time.Time { return i.mtime }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() any           { return nil }

// Ensure MemFS implements FileSystem.
var _ FileSystem = (*MemFS)(nil)
