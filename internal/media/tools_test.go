package media

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeStubTool(t *testing.T, dir, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func TestDetectRunsVersionProbe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	dir := t.TempDir()
	writeStubTool(t, dir, "ffmpeg", "exit 0")
	// On PATH but broken: must count as unavailable.
	writeStubTool(t, dir, "ffprobe", "exit 1")
	t.Setenv("PATH", dir)

	ts := Detect(ToolsConfig{})
	if !ts.FFmpegOK {
		t.Error("ffmpeg stub answers -version, want FFmpegOK")
	}
	if ts.FFprobeOK {
		t.Error("ffprobe stub exits non-zero, want !FFprobeOK")
	}
	if ts.YtDlpOK {
		t.Error("yt-dlp absent, want !YtDlpOK")
	}
}

func TestDetectDefaultsBinNames(t *testing.T) {
	ts := Detect(ToolsConfig{FFmpegBin: "/nonexistent/ffmpeg-custom"})
	if ts.FFmpegBin != "/nonexistent/ffmpeg-custom" {
		t.Errorf("FFmpegBin = %q", ts.FFmpegBin)
	}
	if ts.FFprobeBin != "ffprobe" || ts.YtDlpBin != "yt-dlp" {
		t.Errorf("defaults = %q, %q", ts.FFprobeBin, ts.YtDlpBin)
	}
	if ts.FFmpegOK {
		t.Error("nonexistent binary, want !FFmpegOK")
	}
}
