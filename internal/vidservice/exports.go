package vidservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/vidunpack/internal/apperr"
	"github.com/starford/vidunpack/internal/export"
	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
)

// ReportArtifacts names the two registered outputs of a report run.
type ReportArtifacts struct {
	Report   store.Artifact `json:"report_html"`
	Manifest store.Artifact `json:"manifest_json"`
}

// ExportZipResult is the outcome of a materialized export.
type ExportZipResult struct {
	Zip         store.Artifact `json:"zip"`
	TotalBytes  int64          `json:"total_bytes"`
	DownloadURL string         `json:"download_url"`
}

// GenerateReport writes report.html and manifest.json under the
// project's export directory and registers both.
func (s *Service) GenerateReport(ctx context.Context, projectID string) (ReportArtifacts, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return ReportArtifacts{}, err
	}
	ts := nowMS()
	res, err := s.exporter.GenerateReport(p, ts)
	if err != nil {
		return ReportArtifacts{}, err
	}
	report, err := s.db.EnsureArtifact(projectID, "report_html", res.ReportRel, ts)
	if err != nil {
		return ReportArtifacts{}, err
	}
	manifest, err := s.db.EnsureArtifact(projectID, "manifest_json", res.ManifestRel, ts)
	if err != nil {
		return ReportArtifacts{}, err
	}
	s.event(projectID, ts, "report_generated", map[string]any{
		"report":   res.ReportRel,
		"manifest": res.ManifestRel,
		"version":  1,
	})
	return ReportArtifacts{Report: report, Manifest: manifest}, nil
}

// EstimateExportZip computes the zip plan and its uncompressed size
// without writing anything.
func (s *Service) EstimateExportZip(_ context.Context, projectID string, f export.Flags) (*export.Estimate, error) {
	if err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	return s.exporter.EstimateZip(projectID, f, nowMS())
}

// ExportZip materializes the export archive, registers it, and folds
// the export into the profile. A failed profile update does not fail
// the export.
func (s *Service) ExportZip(_ context.Context, projectID string, f export.Flags) (ExportZipResult, error) {
	if err := s.requireProject(projectID); err != nil {
		return ExportZipResult{}, err
	}
	ts := nowMS()
	res, err := s.exporter.MaterializeZip(projectID, f, ts)
	if err != nil {
		return ExportZipResult{}, err
	}
	art, err := s.db.EnsureArtifact(projectID, "export_zip", res.ZipRel, ts)
	if err != nil {
		return ExportZipResult{}, err
	}
	s.event(projectID, ts, "export_zip", map[string]any{"zip": res.ZipRel, "bytes": res.TotalBytes})

	if err := s.profiles.UpdateAfterExport(projectID, ts, f); err != nil {
		slog.Warn("profile update failed", "project_id", projectID, "error", err)
		s.db.LogEvent(projectID, ts, "warn", "profile_update_failed", map[string]any{"error": err.Error()})
	}

	return ExportZipResult{
		Zip:         art,
		TotalBytes:  res.TotalBytes,
		DownloadURL: fmt.Sprintf("/projects/%s/exports/download/%s", projectID, res.ZipName),
	}, nil
}

// ExportFile resolves a previously exported file for download.
func (s *Service) ExportFile(_ context.Context, projectID, file string) (string, string, error) {
	if err := s.requireProject(projectID); err != nil {
		return "", "", err
	}
	safe := storage.SanitizeFileName(file, "")
	if safe == "" {
		return "", "", apperr.Invalidf("invalid file")
	}
	rel := "projects/" + projectID + "/out/export/" + safe
	if !s.fs.Exists(rel) {
		return "", "", apperr.NotFoundf("file not found")
	}
	return rel, safe, nil
}

type manifestImport struct {
	Version int `json:"version"`
	Project struct {
		Title string `json:"title"`
	} `json:"project"`
	PoolItems []struct {
		Kind      string  `json:"kind"`
		Title     *string `json:"title"`
		SourceURL *string `json:"source_url"`
		License   *string `json:"license"`
		DedupKey  *string `json:"dedup_key"`
		DataJSON  *string `json:"data_json"`
		Selected  *bool   `json:"selected"`
	} `json:"pool_items"`
}

// ImportManifest creates a fresh project from a previously exported
// manifest and restores its pool, best effort.
func (s *Service) ImportManifest(_ context.Context, raw json.RawMessage) (store.Project, error) {
	var m manifestImport
	if err := json.Unmarshal(raw, &m); err != nil {
		return store.Project{}, apperr.Invalidf("invalid manifest: %v", err)
	}

	title := strings.TrimSpace(m.Project.Title)
	if title == "" {
		title = "imported"
	}
	ts := nowMS()
	p, err := s.db.CreateProject("imported: "+title, ts)
	if err != nil {
		return store.Project{}, err
	}
	for _, dir := range projectDirs {
		if err := s.fs.MkdirAll("projects/" + p.ID + "/" + dir); err != nil {
			return store.Project{}, err
		}
	}

	for _, it := range m.PoolItems {
		kind := it.Kind
		if kind == "" {
			kind = "link"
		}
		dedupKey := "random"
		if it.DedupKey != nil && *it.DedupKey != "" {
			dedupKey = *it.DedupKey
		} else if it.SourceURL != nil && *it.SourceURL != "" {
			dedupKey = *it.SourceURL
		}
		selected := true
		if it.Selected != nil {
			selected = *it.Selected
		}
		if _, err := s.db.UpsertPoolItem(p.ID, store.PoolItemInput{
			Kind:      kind,
			Title:     it.Title,
			SourceURL: it.SourceURL,
			License:   it.License,
			DedupKey:  dedupKey,
			DataJSON:  it.DataJSON,
			Selected:  selected,
		}, ts); err != nil {
			return store.Project{}, err
		}
	}

	s.event(p.ID, ts, "project_imported_manifest", map[string]any{"version": m.Version})
	return p, nil
}
