package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempFS(t)
	content := []byte("metadata")
	if err := s.Write("projects/p1/out/metadata.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("projects/p1/out/metadata.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempFS(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.bin",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestExistsRegularFilesOnly(t *testing.T) {
	s := tempFS(t)
	_ = s.MkdirAll("projects/p1/out")
	if s.Exists("projects/p1/out") {
		t.Error("directories should not count as existing files")
	}
	_ = s.Write("projects/p1/out/a.txt", []byte("a"))
	if !s.Exists("projects/p1/out/a.txt") {
		t.Error("written file not visible")
	}
}

func TestSizeAndCopyTo(t *testing.T) {
	s := tempFS(t)
	_ = s.Write("big.bin", bytes.Repeat([]byte("x"), 1234))

	n, err := s.Size("big.bin")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 1234 {
		t.Errorf("Size = %d, want 1234", n)
	}

	var buf bytes.Buffer
	copied, err := s.CopyTo(&buf, "big.bin")
	if err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if copied != 1234 || buf.Len() != 1234 {
		t.Errorf("copied %d bytes, buffered %d", copied, buf.Len())
	}
}

func TestRemoveMissingOK(t *testing.T) {
	s := tempFS(t)
	if err := s.Remove("never-written.txt"); err != nil {
		t.Errorf("Remove missing: %v", err)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempFS(t)
	_ = s.Write("atomic.bin", []byte("one"))
	if err := s.Write("atomic.bin", []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.bin")
	if string(got) != "two" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".vidunpack-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in, fallback, want string
	}{
		{"movie.mp4", "video", "movie.mp4"},
		{"my file (final).mp4", "video", "my_file__final_.mp4"},
		{"..hidden", "video", "hidden"},
		{"...", "video", "video"},
		{"", "upload", "upload"},
		{"каталог", "video", "_______"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in, tc.fallback); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeRelPath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"clips/clip one.mp4", "clips/clip_one.mp4"},
		{`win\style\path.txt`, "win/style/path.txt"},
		{"../../etc/passwd", "etc/passwd"},
		{"a/./b//c", "a/b/c"},
		{"..", ""},
	}
	for _, tc := range cases {
		if got := SanitizeRelPath(tc.in); got != tc.want {
			t.Errorf("SanitizeRelPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
