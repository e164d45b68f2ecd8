package pipeline

import (
	"context"
	"fmt"

	"github.com/starford/vidunpack/internal/fingerprint"
	"github.com/starford/vidunpack/internal/media"
	"github.com/starford/vidunpack/internal/storage"
)

const clipLenSeconds = 6.0

// anchor names are fixed; each yields one clip and one thumbnail.
var anchorNames = []string{"start", "mid", "end"}

// Output is one derived file, ready to be registered as an artifact.
type Output struct {
	Kind string
	Path string // relative to the data root
}

// Derivation is the result of a full pipeline run over one input.
type Derivation struct {
	Fingerprint     string
	OutDir          string
	DurationSeconds float64
	Outputs         []Output
}

// Pipeline runs ffprobe/ffmpeg derivation steps against the data root.
type Pipeline struct {
	fs     *storage.FS
	runner *media.Runner
	tools  media.Toolset
}

// New returns a pipeline bound to the data root, runner, and tool
// snapshot.
func New(fs *storage.FS, runner *media.Runner, tools media.Toolset) *Pipeline {
	return &Pipeline{fs: fs, runner: runner, tools: tools}
}

// Derive probes the input, then produces three clips, a mono 16 kHz WAV,
// and three thumbnails under a fingerprint-scoped directory. Steps whose
// output file already exists are skipped, so re-running over an unchanged
// input touches nothing. Any tool failure aborts the run; outputs written
// before the failure stay on disk and are picked up by the next run.
func (p *Pipeline) Derive(ctx context.Context, projectID, inputRel string) (*Derivation, error) {
	inputAbs, err := p.fs.Abs(inputRel)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolve input: %w", err)
	}
	fp, err := fingerprint.File(inputAbs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fingerprint input: %w", err)
	}
	cache, err := NewOutputCache(p.fs, projectID, fp)
	if err != nil {
		return nil, err
	}

	d := &Derivation{Fingerprint: fp, OutDir: cache.Dir()}

	report, err := p.ensureMetadata(ctx, cache, inputAbs)
	if err != nil {
		return nil, err
	}
	d.DurationSeconds = media.DurationSeconds(report)
	d.Outputs = append(d.Outputs, Output{Kind: "metadata_json", Path: cache.Path("metadata.json")})

	for _, name := range anchorNames {
		at := anchorOffset(name, d.DurationSeconds)
		clip := "clip_" + name + ".mp4"
		if !cache.Has(clip) {
			if err := p.extractClip(ctx, inputAbs, cache, clip, at); err != nil {
				return nil, err
			}
		}
		d.Outputs = append(d.Outputs, Output{Kind: "clip_" + name, Path: cache.Path(clip)})
	}

	if !cache.Has("audio.wav") {
		if err := p.extractAudio(ctx, inputAbs, cache); err != nil {
			return nil, err
		}
	}
	d.Outputs = append(d.Outputs, Output{Kind: "audio_wav", Path: cache.Path("audio.wav")})

	for _, name := range anchorNames {
		at := anchorOffset(name, d.DurationSeconds)
		thumb := "thumb_" + name + ".jpg"
		if !cache.Has(thumb) {
			if err := p.extractThumb(ctx, inputAbs, cache, thumb, at); err != nil {
				return nil, err
			}
		}
		d.Outputs = append(d.Outputs, Output{Kind: "thumb_" + name, Path: cache.Path(thumb)})
	}

	return d, nil
}

// anchorOffset places the three anchors on the timeline. Durations the
// probe could not determine come through as 0, which collapses every
// anchor to the file start.
func anchorOffset(name string, duration float64) float64 {
	switch name {
	case "mid":
		at := duration/2 - clipLenSeconds/2
		if at < 0 {
			at = 0
		}
		return at
	case "end":
		if duration > clipLenSeconds {
			return duration - clipLenSeconds
		}
		return 0
	default:
		return 0
	}
}

func (p *Pipeline) ensureMetadata(ctx context.Context, cache *OutputCache, inputAbs string) ([]byte, error) {
	rel := cache.Path("metadata.json")
	if cache.Has("metadata.json") {
		report, err := p.fs.Read(rel)
		if err != nil {
			return nil, fmt.Errorf("pipeline: read cached metadata: %w", err)
		}
		return report, nil
	}
	report, err := p.runner.Probe(ctx, p.tools.FFprobeBin, inputAbs)
	if err != nil {
		return nil, err
	}
	if err := p.fs.Write(rel, report); err != nil {
		return nil, fmt.Errorf("pipeline: write metadata: %w", err)
	}
	return report, nil
}

func (p *Pipeline) extractClip(ctx context.Context, inputAbs string, cache *OutputCache, name string, at float64) error {
	outAbs, err := p.fs.Abs(cache.Path(name))
	if err != nil {
		return fmt.Errorf("pipeline: resolve clip path: %w", err)
	}
	return p.runner.Run(ctx, p.tools.FFmpegBin,
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", at),
		"-t", fmt.Sprintf("%.3f", clipLenSeconds),
		"-i", inputAbs,
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "28",
		"-c:a", "aac", "-b:a", "128k",
		outAbs,
	)
}

func (p *Pipeline) extractAudio(ctx context.Context, inputAbs string, cache *OutputCache) error {
	outAbs, err := p.fs.Abs(cache.Path("audio.wav"))
	if err != nil {
		return fmt.Errorf("pipeline: resolve audio path: %w", err)
	}
	return p.runner.Run(ctx, p.tools.FFmpegBin,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputAbs,
		"-vn", "-ac", "1", "-ar", "16000",
		outAbs,
	)
}

func (p *Pipeline) extractThumb(ctx context.Context, inputAbs string, cache *OutputCache, name string, at float64) error {
	outAbs, err := p.fs.Abs(cache.Path(name))
	if err != nil {
		return fmt.Errorf("pipeline: resolve thumbnail path: %w", err)
	}
	return p.runner.Run(ctx, p.tools.FFmpegBin,
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", at),
		"-i", inputAbs,
		"-frames:v", "1", "-q:v", "2",
		outAbs,
	)
}
