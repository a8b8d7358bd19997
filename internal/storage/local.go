package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchiver implements Archiver using a directory on local disk.
type LocalArchiver struct {
	dir string
}

// NewLocalArchiver creates a LocalArchiver rooted at dir. If dir is empty,
// a subdirectory of os.TempDir() is used. The directory is created if it
// doesn't exist.
func NewLocalArchiver(dir string) (*LocalArchiver, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "veo-gateway")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("storage: create archive directory: %w", err)
	}

	return &LocalArchiver{dir: dir}, nil
}

// Dir returns the archive directory path.
func (a *LocalArchiver) Dir() string {
	return a.dir
}

// Archive writes the data to a file under the archive directory.
func (a *LocalArchiver) Archive(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("storage: context cancelled: %w", ctx.Err())
	default:
	}

	path := filepath.Join(a.dir, sanitizeName(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: create archive file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("storage: write archive file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close archive file: %w", err)
	}

	return path, nil
}

// sanitizeName strips path separators so a client-supplied filename cannot
// escape the archive directory.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "veo_result.mp4"
	}
	return name
}

// Compile-time check that LocalArchiver implements Archiver.
var _ Archiver = (*LocalArchiver)(nil)
