package remote

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExtractSummary(t *testing.T) {
	raw := []byte(`{
		"extractor": "youtube",
		"id": "abc123",
		"title": "A Video",
		"webpage_url": "https://youtube.com/watch?v=abc123",
		"duration": 123.5,
		"thumbnail": "  https://i.example/t.jpg  ",
		"description": "line one\nline   two"
	}`)
	sum := ExtractSummary(raw, "https://requested.example/v")

	if sum.Extractor != "youtube" || sum.ID != "abc123" || sum.Title != "A Video" {
		t.Errorf("identity fields: %+v", sum)
	}
	if sum.WebpageURL != "https://youtube.com/watch?v=abc123" {
		t.Errorf("webpage_url = %q", sum.WebpageURL)
	}
	if sum.DurationS == nil || *sum.DurationS != 123.5 {
		t.Errorf("duration = %v", sum.DurationS)
	}
	if sum.Thumbnail == nil || *sum.Thumbnail != "https://i.example/t.jpg" {
		t.Errorf("thumbnail = %v", sum.Thumbnail)
	}
	if sum.Description == nil || *sum.Description != "line one line two" {
		t.Errorf("description = %v", sum.Description)
	}
}

func TestExtractSummaryDefaults(t *testing.T) {
	sum := ExtractSummary([]byte(`{}`), "https://requested.example/v")
	if sum.Extractor != "unknown" || sum.ID != "unknown" || sum.Title != "untitled" {
		t.Errorf("placeholders: %+v", sum)
	}
	if sum.WebpageURL != "https://requested.example/v" {
		t.Errorf("webpage_url fallback = %q", sum.WebpageURL)
	}
	if sum.Thumbnail != nil || sum.Description != nil {
		t.Errorf("optional fields should stay nil: %+v", sum)
	}
	if sum.DurationS != nil {
		t.Errorf("duration = %v", *sum.DurationS)
	}
}

func TestExtractSummaryStringDurationAndExtractorKey(t *testing.T) {
	raw := []byte(`{"extractor_key": "Generic", "duration": "42"}`)
	sum := ExtractSummary(raw, "u")
	if sum.Extractor != "Generic" {
		t.Errorf("extractor = %q", sum.Extractor)
	}
	if sum.DurationS == nil || *sum.DurationS != 42 {
		t.Errorf("duration = %v", sum.DurationS)
	}
}

func TestCollapseDescriptionTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := collapseDescription(long)
	runes := []rune(got)
	if len(runes) != maxDescriptionChars+1 {
		t.Fatalf("len = %d, want %d", len(runes), maxDescriptionChars+1)
	}
	if runes[len(runes)-1] != '…' {
		t.Errorf("missing ellipsis: %q", got[len(got)-3:])
	}
}

func TestDownloadBase(t *testing.T) {
	sum := Summary{Extractor: "youtube", ID: "abc 123"}
	if got := downloadBase(sum, 5); got != "youtube-abc_123" {
		t.Errorf("downloadBase = %q", got)
	}
	if got := downloadBase(Summary{}, 5); got != "remote-5" {
		t.Errorf("fallback = %q", got)
	}
}

func TestPickDownloadedFile(t *testing.T) {
	dir := t.TempDir()

	// Expected merged name wins.
	if err := os.WriteFile(filepath.Join(dir, "yt-abc.mp4"), []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := pickDownloadedFile(dir, "yt-abc")
	if err != nil {
		t.Fatalf("pickDownloadedFile: %v", err)
	}
	if got != "yt-abc.mp4" {
		t.Errorf("picked %q", got)
	}

	// Without the mp4, the freshest prefixed file is picked.
	os.Remove(filepath.Join(dir, "yt-abc.mp4"))
	older := filepath.Join(dir, "yt-abc.webm")
	newer := filepath.Join(dir, "yt-abc.mkv")
	if err := os.WriteFile(older, []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	got, err = pickDownloadedFile(dir, "yt-abc")
	if err != nil {
		t.Fatalf("pickDownloadedFile: %v", err)
	}
	if got != "yt-abc.mkv" {
		t.Errorf("picked %q, want yt-abc.mkv", got)
	}

	// No match at all is an error.
	if _, err := pickDownloadedFile(dir, "other-base"); err == nil {
		t.Error("expected error when nothing matches")
	}
}
