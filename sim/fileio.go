package sim

import (
	"os"
	"path/filepath"
)

// FileSystem is the pass-through used by readFile and writeFile.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// OSFileSystem reads and writes host files. Relative names are resolved
// against Root when it is set.
type OSFileSystem struct {
	Root string
}

func (fs OSFileSystem) resolve(name string) string {
	if fs.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(fs.Root, name)
}

// ReadFile returns the full content of name.
func (fs OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(fs.resolve(name))
}

// WriteFile replaces the content of name with data.
func (fs OSFileSystem) WriteFile(name string, data []byte) error {
	return os.WriteFile(fs.resolve(name), data, 0o644)
}
