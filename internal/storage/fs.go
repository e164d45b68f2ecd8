// Package storage provides the data-directory file-system abstraction.
// Every path persisted by the service is relative to a single root so the
// data directory can be relocated without invalidating records.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FS resolves relative paths against the data directory root.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates an FS rooted at the given directory, creating it if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory path.
func (f *FS) Root() string {
	return f.root
}

// Abs resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes data root: %s", rel)
	}
	return abs, nil
}

// Rel converts an absolute path under the root back to a slash-separated
// relative path. Paths outside the root are returned unchanged.
func (f *FS) Rel(abs string) string {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}

// MkdirAll creates a directory (and parents) under the root.
func (f *FS) MkdirAll(rel string) error {
	abs, err := f.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", rel, err)
	}
	return nil
}

// Read returns the raw bytes of the file at rel.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename. Parent
// directories are created on demand.
func (f *FS) Write(rel string, content []byte) error {
	abs, err := f.Abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vidunpack-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Create opens a new file at rel for streaming writes, creating parent
// directories on demand. The caller owns closing the file.
func (f *FS) Create(rel string) (*os.File, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	file, err := os.Create(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", rel, err)
	}
	return file, nil
}

// Open opens the file at rel for reading.
func (f *FS) Open(rel string) (*os.File, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", rel, err)
	}
	return file, nil
}

// Exists reports whether a regular file exists at rel.
func (f *FS) Exists(rel string) bool {
	abs, err := f.Abs(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the byte size of the file at rel without reading its
// contents. The export estimator relies on this staying metadata-only.
func (f *FS) Size(rel string) (int64, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("storage: stat %s: %w", rel, err)
	}
	return info.Size(), nil
}

// Remove deletes the file at rel. Missing files are not an error.
func (f *FS) Remove(rel string) error {
	abs, err := f.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %s: %w", rel, err)
	}
	return nil
}

// CopyTo streams the file at rel into w and returns the bytes copied.
func (f *FS) CopyTo(w io.Writer, rel string) (int64, error) {
	file, err := f.Open(rel)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	n, err := io.Copy(w, file)
	if err != nil {
		return n, fmt.Errorf("storage: copy %s: %w", rel, err)
	}
	return n, nil
}
