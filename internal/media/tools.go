// Package media wraps the external command-line tools (ffmpeg, ffprobe,
// yt-dlp) behind a concurrency-gated runner and availability snapshot.
package media

import (
	"io"
	"os/exec"
)

// ToolsConfig names the binaries to invoke. Empty fields fall back to the
// conventional names on PATH.
type ToolsConfig struct {
	FFmpegBin  string `yaml:"ffmpeg_bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`
	YtDlpBin   string `yaml:"ytdlp_bin"`
}

func (c ToolsConfig) withDefaults() ToolsConfig {
	if c.FFmpegBin == "" {
		c.FFmpegBin = "ffmpeg"
	}
	if c.FFprobeBin == "" {
		c.FFprobeBin = "ffprobe"
	}
	if c.YtDlpBin == "" {
		c.YtDlpBin = "yt-dlp"
	}
	return c
}

// Toolset is the availability snapshot taken at startup. Handlers consult
// it instead of re-probing PATH on every request; a tool installed after
// startup is picked up on the next restart.
type Toolset struct {
	FFmpegBin  string
	FFprobeBin string
	YtDlpBin   string

	FFmpegOK  bool
	FFprobeOK bool
	YtDlpOK   bool
}

// Detect probes the configured binaries by invoking them with their
// version flag and records which ones respond. A binary that is on PATH
// but exits non-zero counts as unavailable.
func Detect(cfg ToolsConfig) Toolset {
	cfg = cfg.withDefaults()
	return Toolset{
		FFmpegBin:  cfg.FFmpegBin,
		FFprobeBin: cfg.FFprobeBin,
		YtDlpBin:   cfg.YtDlpBin,

		FFmpegOK:  probeVersion(cfg.FFmpegBin, "-version"),
		FFprobeOK: probeVersion(cfg.FFprobeBin, "-version"),
		YtDlpOK:   probeVersion(cfg.YtDlpBin, "--version"),
	}
}

func probeVersion(bin, flag string) bool {
	cmd := exec.Command(bin, flag)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}
