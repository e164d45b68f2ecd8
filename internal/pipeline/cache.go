// Package pipeline derives clips, audio, and thumbnails from an input
// video with ffmpeg, caching outputs per input fingerprint.
package pipeline

import (
	"fmt"
	"path"

	"github.com/starford/vidunpack/internal/storage"
)

// OutputCache scopes derivation outputs to one (project, input
// fingerprint) pair. Existence of a file under the scoped directory is
// the only cache signal: a step whose output file is already present is
// skipped, and a changed input fingerprints to a fresh directory so stale
// outputs are never reused.
type OutputCache struct {
	fs  *storage.FS
	dir string
}

// NewOutputCache creates (if needed) the scoped output directory.
func NewOutputCache(fs *storage.FS, projectID, fingerprint string) (*OutputCache, error) {
	dir := path.Join("projects", projectID, "out", "ffmpeg", fingerprint)
	if err := fs.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}
	return &OutputCache{fs: fs, dir: dir}, nil
}

// Dir returns the scoped directory, relative to the data root.
func (c *OutputCache) Dir() string { return c.dir }

// Path returns the relative path of a named output.
func (c *OutputCache) Path(name string) string { return path.Join(c.dir, name) }

// Has reports whether a named output already exists.
func (c *OutputCache) Has(name string) bool { return c.fs.Exists(c.Path(name)) }
