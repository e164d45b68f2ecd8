package vidservice

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/vidunpack/internal/apperr"
	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
)

// UploadResult describes a stored upload or imported video.
type UploadResult struct {
	Artifact store.Artifact `json:"artifact"`
	Bytes    int64          `json:"bytes"`
	FileName string         `json:"file_name"`
	Mime     string         `json:"mime,omitempty"`
}

// ListArtifacts returns the project's artifacts, newest first.
func (s *Service) ListArtifacts(_ context.Context, projectID string) ([]store.Artifact, error) {
	if err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	return s.db.ListArtifacts(projectID, 0)
}

// CreateTextArtifact writes content under the project's out/ directory
// and registers it under the given kind.
func (s *Service) CreateTextArtifact(_ context.Context, projectID, kind, outPath, content string) (store.Artifact, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return store.Artifact{}, apperr.Invalidf("missing kind")
	}
	safe := storage.SanitizeRelPath(outPath)
	if safe == "" {
		return store.Artifact{}, apperr.Invalidf("invalid out_path")
	}
	if err := s.requireProject(projectID); err != nil {
		return store.Artifact{}, err
	}
	rel := "projects/" + projectID + "/out/" + safe
	if err := s.fs.Write(rel, []byte(content)); err != nil {
		return store.Artifact{}, err
	}
	ts := nowMS()
	art, err := s.db.EnsureArtifact(projectID, kind, rel, ts)
	if err != nil {
		return store.Artifact{}, err
	}
	s.event(projectID, ts, "text_artifact", map[string]any{"kind": kind, "path": rel})
	return art, nil
}

// UploadArtifact streams a multipart file into projects/{id}/uploads and
// registers it with kind "upload".
func (s *Service) UploadArtifact(_ context.Context, projectID, fileName, mime string, r io.Reader) (UploadResult, error) {
	if err := s.requireProject(projectID); err != nil {
		return UploadResult{}, err
	}
	name := storage.SanitizeFileName(fileName, "upload")
	if strings.Trim(name, "_") == "" {
		name = "upload"
	}
	ts := nowMS()
	rel := fmt.Sprintf("projects/%s/uploads/%d-%s", projectID, ts, name)
	n, err := s.streamTo(rel, r)
	if err != nil {
		return UploadResult{}, err
	}
	art, err := s.db.EnsureArtifact(projectID, "upload", rel, ts)
	if err != nil {
		return UploadResult{}, err
	}
	s.event(projectID, ts, "upload", map[string]any{"path": rel, "bytes": n, "mime": mime})
	return UploadResult{Artifact: art, Bytes: n, FileName: name, Mime: mime}, nil
}

// ArtifactFile resolves an artifact to a data-dir path and content type
// for raw streaming. URL-kind artifacts have no file to stream.
func (s *Service) ArtifactFile(_ context.Context, projectID, artifactID string) (string, string, error) {
	if err := s.requireProject(projectID); err != nil {
		return "", "", err
	}
	art, err := s.db.GetArtifact(projectID, artifactID)
	if err != nil {
		return "", "", err
	}
	if art == nil {
		return "", "", apperr.NotFoundf("artifact not found")
	}
	if strings.HasPrefix(art.Path, "http://") || strings.HasPrefix(art.Path, "https://") {
		return "", "", apperr.Invalidf("artifact is not a file")
	}
	if !s.fs.Exists(art.Path) {
		return "", "", apperr.NotFoundf("file not found")
	}
	return art.Path, contentTypeFor(art.Path), nil
}

// AddInputURL registers a source URL as an input_url artifact. Repeated
// submissions append, one row each.
func (s *Service) AddInputURL(_ context.Context, projectID, url string) (store.Artifact, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return store.Artifact{}, apperr.Invalidf("url must start with http:// or https://")
	}
	if err := s.requireProject(projectID); err != nil {
		return store.Artifact{}, err
	}
	ts := nowMS()
	art, err := s.db.InsertArtifact(projectID, "input_url", url, ts)
	if err != nil {
		return store.Artifact{}, err
	}
	s.event(projectID, ts, "input_url_added", map[string]any{"url": url})
	return art, nil
}

// ImportLocalVideo streams an uploaded video into projects/{id}/media
// under a fresh unique name and registers it as input_video.
func (s *Service) ImportLocalVideo(_ context.Context, projectID, fileName string, r io.Reader) (UploadResult, error) {
	if err := s.requireProject(projectID); err != nil {
		return UploadResult{}, err
	}
	name := uuid.NewString() + "_" + storage.SanitizeFileName(fileName, "video")
	rel := "projects/" + projectID + "/media/" + name
	n, err := s.streamTo(rel, r)
	if err != nil {
		return UploadResult{}, err
	}
	ts := nowMS()
	art, err := s.db.InsertArtifact(projectID, "input_video", rel, ts)
	if err != nil {
		return UploadResult{}, err
	}
	s.event(projectID, ts, "input_video_imported", map[string]any{"path": rel, "bytes": n})
	return UploadResult{Artifact: art, Bytes: n, FileName: name}, nil
}

func (s *Service) streamTo(rel string, r io.Reader) (int64, error) {
	f, err := s.fs.Create(rel)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close() //nolint:errcheck
		return 0, fmt.Errorf("vidservice: write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("vidservice: close %s: %w", rel, err)
	}
	return n, nil
}

func contentTypeFor(p string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	case "svg":
		return "image/svg+xml"
	case "json":
		return "application/json"
	case "txt", "log", "md":
		return "text/plain; charset=utf-8"
	case "html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
