package vidservice

import (
	"context"
	"strings"

	"github.com/starford/vidunpack/internal/apperr"
	"github.com/starford/vidunpack/internal/remote"
	"github.com/starford/vidunpack/internal/store"
)

// RemoteImportResult carries the resolved metadata and the registered
// artifacts of a remote import. InputVideo is nil on resolve-only calls.
type RemoteImportResult struct {
	Info         remote.Summary  `json:"info"`
	InfoArtifact store.Artifact  `json:"info_artifact"`
	InputVideo   *store.Artifact `json:"input_video"`
}

// PipelineResult names every derived artifact of one pipeline run.
type PipelineResult struct {
	InputVideoArtifactID string           `json:"input_video_artifact_id"`
	Fingerprint          string           `json:"fingerprint"`
	DurationSeconds      float64          `json:"duration_s"`
	Metadata             store.Artifact   `json:"metadata"`
	Clips                []store.Artifact `json:"clips"`
	Audio                store.Artifact   `json:"audio"`
	Thumbnails           []store.Artifact `json:"thumbnails"`
}

// ImportRemoteMedia resolves a URL through yt-dlp and, when download is
// set, fetches the video. Both steps are gated on granted consent.
func (s *Service) ImportRemoteMedia(ctx context.Context, projectID, url string, download bool, cookiesFromBrowser string) (RemoteImportResult, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return RemoteImportResult{}, apperr.Invalidf("url must start with http:// or https://")
	}
	if !s.tools.YtDlpOK {
		return RemoteImportResult{}, apperr.Preconditionf("yt-dlp not found; install yt-dlp (and restart) to enable URL resolve/download")
	}
	if download && !s.tools.FFmpegOK {
		return RemoteImportResult{}, apperr.Preconditionf("ffmpeg not found on PATH; install ffmpeg to enable URL downloads (mp4 merge)")
	}
	if err := s.requireProject(projectID); err != nil {
		return RemoteImportResult{}, err
	}
	consent, err := s.db.GetConsent(projectID)
	if err != nil {
		return RemoteImportResult{}, err
	}
	if !consent.Consented {
		return RemoteImportResult{}, apperr.Preconditionf("consent required: save URL and confirm consent first")
	}

	ts := nowMS()
	infoRel, sum, err := s.resolver.Probe(ctx, projectID, url, cookiesFromBrowser, ts)
	if err != nil {
		return RemoteImportResult{}, err
	}
	infoArt, err := s.db.EnsureArtifact(projectID, "ytdlp_info", infoRel, ts)
	if err != nil {
		return RemoteImportResult{}, err
	}
	s.event(projectID, ts, "remote_resolve", map[string]any{"url": url})

	res := RemoteImportResult{Info: sum, InfoArtifact: infoArt}
	if !download {
		return res, nil
	}

	videoRel, err := s.resolver.Download(ctx, projectID, url, cookiesFromBrowser, sum, ts)
	if err != nil {
		return RemoteImportResult{}, err
	}
	videoArt, err := s.db.EnsureArtifact(projectID, "input_video", videoRel, ts)
	if err != nil {
		return RemoteImportResult{}, err
	}
	res.InputVideo = &videoArt
	s.event(projectID, ts, "remote_download", map[string]any{"url": url, "path": videoRel})
	return res, nil
}

// RunPipeline derives the probe report, clips, audio track, and
// thumbnails from a registered input video. Re-runs against an
// unchanged input reuse the fingerprint-scoped cache and register the
// same artifact rows again without duplication.
func (s *Service) RunPipeline(ctx context.Context, projectID, inputArtifactID string) (PipelineResult, error) {
	if strings.TrimSpace(inputArtifactID) == "" {
		return PipelineResult{}, apperr.Invalidf("missing input_artifact_id")
	}
	if !s.tools.FFmpegOK || !s.tools.FFprobeOK {
		return PipelineResult{}, apperr.Preconditionf("ffmpeg/ffprobe not found on PATH; please install ffmpeg and restart")
	}
	if err := s.requireProject(projectID); err != nil {
		return PipelineResult{}, err
	}
	input, err := s.db.GetArtifact(projectID, inputArtifactID)
	if err != nil {
		return PipelineResult{}, err
	}
	if input == nil {
		return PipelineResult{}, apperr.NotFoundf("input artifact not found")
	}
	if input.Kind != "input_video" {
		return PipelineResult{}, apperr.Preconditionf("artifact kind must be input_video")
	}
	if !s.fs.Exists(input.Path) {
		return PipelineResult{}, apperr.Preconditionf("input file missing on disk: %s", input.Path)
	}

	d, err := s.pipeline.Derive(ctx, projectID, input.Path)
	if err != nil {
		return PipelineResult{}, err
	}

	ts := nowMS()
	res := PipelineResult{
		InputVideoArtifactID: input.ID,
		Fingerprint:          d.Fingerprint,
		DurationSeconds:      d.DurationSeconds,
	}
	for _, out := range d.Outputs {
		art, err := s.db.EnsureArtifact(projectID, out.Kind, out.Path, ts)
		if err != nil {
			return PipelineResult{}, err
		}
		switch {
		case out.Kind == "metadata_json":
			res.Metadata = art
		case out.Kind == "audio_wav":
			res.Audio = art
		case strings.HasPrefix(out.Kind, "clip_"):
			res.Clips = append(res.Clips, art)
		case strings.HasPrefix(out.Kind, "thumb_"):
			res.Thumbnails = append(res.Thumbnails, art)
		}
	}
	s.event(projectID, ts, "ffmpeg_pipeline", map[string]any{
		"input_artifact_id": input.ID,
		"fingerprint":       d.Fingerprint,
		"duration_s":        d.DurationSeconds,
	})
	return res, nil
}
