package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Probe runs ffprobe against the file and returns its raw JSON report
// (format plus streams). The bytes are stored verbatim as the project's
// metadata artifact.
func (r *Runner) Probe(ctx context.Context, ffprobeBin, path string) ([]byte, error) {
	out, err := r.Output(ctx, ffprobeBin,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("media: probe %s: %w", path, err)
	}
	return out, nil
}

// DurationSeconds extracts format.duration from an ffprobe JSON report.
// ffprobe emits the duration as a string; some muxers omit it entirely.
// Missing or unparseable values yield 0.
func DurationSeconds(report []byte) float64 {
	var doc struct {
		Format struct {
			Duration json.RawMessage `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(report, &doc); err != nil {
		return 0
	}
	return NumberField(doc.Format.Duration)
}

// NumberField decodes a JSON value that may be either a number or a
// numeric string, returning 0 when it is neither. yt-dlp and ffprobe are
// both inconsistent about which form they emit.
func NumberField(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
