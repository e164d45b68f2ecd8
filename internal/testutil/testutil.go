// Package testutil provides shared test helpers for setting up data dirs and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned
// up, returning the open store and the database file path.
func TestDB(t *testing.T) (*store.DB, string) {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vidunpack-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbFile.Name()
}

// TestDataDir creates a temporary data directory with a storage.FS.
func TestDataDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
