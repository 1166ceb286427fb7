package textfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to a temporary file next to path, syncs it, and
// renames it over path. The temporary file is removed on every failure path,
// so path holds either its old content or the complete new content. When path
// is a symlink, the file it points to is replaced and the link is kept.
func WriteAtomic(path string, data []byte, perm os.FileMode) (err error) {
	absPath, err := resolvePath(path)
	if err != nil {
		return err
	}

	// Same directory keeps the rename on one filesystem.
	f, err := os.CreateTemp(filepath.Dir(absPath), "."+filepath.Base(absPath)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err = os.Rename(tempPath, absPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// resolvePath returns the absolute path of the file that path refers to.
// A path that does not exist yet is returned as is.
func resolvePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	switch {
	case err == nil:
		return resolved, nil
	case errors.Is(err, fs.ErrNotExist):
		return absPath, nil
	default:
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
}
