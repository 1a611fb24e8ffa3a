package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes rendered documents under a base directory
type FileStore struct {
	BaseDir string
}

// NewFileStore creates a new file store rooted at baseDir
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{BaseDir: baseDir}
}

// Save writes data to BaseDir/name and returns the path written.
// The file is replaced atomically so readers never see half a document.
func (fs *FileStore) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(fs.BaseDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(fs.BaseDir, sanitize(name))
	tmp, err := os.CreateTemp(fs.BaseDir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename into %s: %w", path, err)
	}
	return path, nil
}

// sanitize keeps file names to a safe character set
func sanitize(name string) string {
	clean := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			clean = append(clean, r)
		}
	}
	s := string(clean)
	if s == "" || s == "." || s == ".." {
		return "pipeline"
	}
	return s
}
