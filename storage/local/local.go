// Package local implements imageedit.Storage on the local file system.
package local

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mhpenta/imageedit"
)

// FileStorage writes exported images under BasePath.
type FileStorage struct {
	BasePath string
}

var _ imageedit.Storage = (*FileStorage)(nil)

// NewFileStorage creates a FileStorage. An empty basePath means the current directory.
func NewFileStorage(basePath string) *FileStorage {
	if basePath == "" {
		basePath = "."
	}
	return &FileStorage{BasePath: basePath}
}

// SaveFile writes data to BasePath/path and returns its file:// URL.
func (f *FileStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}

	full := filepath.Join(f.BasePath, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to ensure export directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", contentType, err)
	}

	abs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", full, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
