package fs

import (
	iofs "io/fs"
	"path/filepath"
	"sync"
)

// MemoryFileSystem keeps files in a map keyed by cleaned path. Tests use it
// to change dependencies underneath a cache.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryFileSystem(files map[string]string) *MemoryFileSystem {
	m := &MemoryFileSystem{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[filepath.Clean(path)] = []byte(content)
	}
	return m
}

func (fs *MemoryFileSystem) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, ok := fs.files[filepath.Clean(path)]
	if !ok {
		return nil, &iofs.PathError{Op: "open", Path: path, Err: iofs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (fs *MemoryFileSystem) WriteFile(path string, data []byte, perm iofs.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.files[filepath.Clean(path)] = append([]byte(nil), data...)
	return nil
}

func (fs *MemoryFileSystem) Remove(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.files, filepath.Clean(path))
}
