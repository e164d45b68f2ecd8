// Package export produces the shareable outputs of a project: the HTML
// report, the manifest, and the export zip with its size estimate.
package export

import (
	"encoding/json"
	"fmt"
	"html/template"
	"path"
	"strings"

	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
)

// Exporter builds export outputs from the store and data root.
type Exporter struct {
	fs *storage.FS
	db *store.DB
}

// New returns an exporter bound to the data root and store.
func New(fs *storage.FS, db *store.DB) *Exporter {
	return &Exporter{fs: fs, db: db}
}

// ReportResult names the two artifacts a report generation produces.
type ReportResult struct {
	ReportRel   string
	ManifestRel string
}

// manifestDoc fixes the field order of manifest.json.
type manifestDoc struct {
	Version       int              `json:"version"`
	GeneratedAtMS int64            `json:"generated_at_ms"`
	Project       manifestProject  `json:"project"`
	Consent       manifestConsent  `json:"consent"`
	Settings      manifestSettings `json:"settings"`
	Artifacts     []store.Artifact `json:"artifacts"`
	PoolItems     []store.PoolItem `json:"pool_items"`
}

type manifestProject struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

type manifestConsent struct {
	Consented   bool  `json:"consented"`
	AutoConfirm bool  `json:"auto_confirm"`
	UpdatedAtMS int64 `json:"updated_at_ms"`
}

type manifestSettings struct {
	ThinkEnabled bool  `json:"think_enabled"`
	UpdatedAtMS  int64 `json:"updated_at_ms"`
}

// GenerateReport writes manifest.json and report.html into the project's
// export directory and returns their relative paths. The caller registers
// the resulting artifacts.
func (e *Exporter) GenerateReport(project store.Project, nowMS int64) (ReportResult, error) {
	consent, err := e.db.GetConsent(project.ID)
	if err != nil {
		return ReportResult{}, err
	}
	settings, err := e.db.GetSettings(project.ID)
	if err != nil {
		return ReportResult{}, err
	}
	artifacts, err := e.db.AllArtifacts(project.ID)
	if err != nil {
		return ReportResult{}, err
	}
	poolItems, err := e.db.AllPoolItems(project.ID)
	if err != nil {
		return ReportResult{}, err
	}

	doc := manifestDoc{
		Version:       1,
		GeneratedAtMS: nowMS,
		Project:       manifestProject{ID: project.ID, Title: project.Title, CreatedAtMS: project.CreatedAtMS},
		Consent:       manifestConsent{Consented: consent.Consented, AutoConfirm: consent.AutoConfirm, UpdatedAtMS: consent.UpdatedAtMS},
		Settings:      manifestSettings{ThinkEnabled: settings.ThinkEnabled, UpdatedAtMS: settings.UpdatedAtMS},
		Artifacts:     artifacts,
		PoolItems:     poolItems,
	}
	manifestBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ReportResult{}, fmt.Errorf("export: marshal manifest: %w", err)
	}

	exportDir := exportDirRel(project.ID)
	res := ReportResult{
		ReportRel:   path.Join(exportDir, "report.html"),
		ManifestRel: path.Join(exportDir, "manifest.json"),
	}
	if err := e.fs.Write(res.ManifestRel, manifestBytes); err != nil {
		return ReportResult{}, fmt.Errorf("export: write manifest: %w", err)
	}

	html, err := e.renderReport(project, poolItems, artifacts, nowMS)
	if err != nil {
		return ReportResult{}, err
	}
	if err := e.fs.Write(res.ReportRel, html); err != nil {
		return ReportResult{}, fmt.Errorf("export: write report: %w", err)
	}
	return res, nil
}

func exportDirRel(projectID string) string {
	return path.Join("projects", projectID, "out", "export")
}

type citationLink struct {
	URL   string
	Label string
}

type citationGroup struct {
	Query   string
	Results []citationLink
}

type reportData struct {
	GeneratedAtMS int64
	Title         string
	ProjectID     string
	CreatedAtMS   int64
	PoolItems     []store.PoolItem
	Citations     []citationGroup
}

func (e *Exporter) renderReport(project store.Project, poolItems []store.PoolItem, artifacts []store.Artifact, nowMS int64) ([]byte, error) {
	data := reportData{
		GeneratedAtMS: nowMS,
		Title:         project.Title,
		ProjectID:     project.ID,
		CreatedAtMS:   project.CreatedAtMS,
		PoolItems:     poolItems,
		Citations:     e.collectCitations(artifacts),
	}
	var buf strings.Builder
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("export: render report: %w", err)
	}
	return []byte(buf.String()), nil
}

// collectCitations reads stored web-search artifacts and lifts their
// query and result links into the report. Unreadable or malformed
// artifacts are skipped; the report must render from whatever is left.
func (e *Exporter) collectCitations(artifacts []store.Artifact) []citationGroup {
	var groups []citationGroup
	for _, a := range artifacts {
		if a.Kind != "exa_search" {
			continue
		}
		raw, err := e.fs.Read(a.Path)
		if err != nil {
			continue
		}
		var doc struct {
			Query   string `json:"query"`
			Results []struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"results"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		group := citationGroup{Query: doc.Query}
		for _, r := range doc.Results {
			label := r.Title
			if label == "" {
				label = r.URL
			}
			group.Results = append(group.Results, citationLink{URL: r.URL, Label: label})
		}
		groups = append(groups, group)
	}
	return groups
}

var reportTmpl = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>VidUnpack Report</title>
  <style>
    :root { color-scheme: light; font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif; }
    body { margin: 0; padding: 24px; background: #0b0f14; color: #e7eef8; }
    a { color: #93c5fd; }
    .muted { color: #9bb0c9; }
    .card { margin: 16px 0; padding: 16px; border-radius: 12px; border: 1px solid rgba(255,255,255,.08); background: rgba(255,255,255,.04); }
    table { width: 100%; border-collapse: collapse; }
    th, td { border-bottom: 1px solid rgba(255,255,255,.08); padding: 8px; text-align: left; vertical-align: top; }
    code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; }
  </style>
</head>
<body>
  <h1>VidUnpack Report</h1>
  <p class="muted">Generated at {{.GeneratedAtMS}}</p>

  <div class="card">
    <h2>Project</h2>
    <p><strong>Title:</strong> {{.Title}}</p>
    <p><strong>ID:</strong> {{.ProjectID}}</p>
    <p><strong>Created:</strong> {{.CreatedAtMS}}</p>
  </div>

  <div class="card">
    <h2>Asset Pool</h2>
    {{if .PoolItems}}<table><thead><tr><th>Selected</th><th>Kind</th><th>Title</th><th>Source</th><th>License</th></tr></thead><tbody>
    {{range .PoolItems}}<tr><td>{{if .Selected}}yes{{else}}no{{end}}</td><td>{{.Kind}}</td><td>{{if .Title}}{{.Title}}{{end}}</td><td>{{if .SourceURL}}{{.SourceURL}}{{end}}</td><td>{{if .License}}{{.License}}{{end}}</td></tr>
    {{end}}</tbody></table>{{else}}<p class="muted">Pool is empty.</p>{{end}}
  </div>

  <div class="card">
    <h2>Citations</h2>
    {{if .Citations}}{{range .Citations}}<h4>Search: {{.Query}}</h4>
    <ul>{{range .Results}}<li><a href="{{.URL}}">{{.Label}}</a></li>{{end}}</ul>
    {{end}}{{else}}<p class="muted">No web search artifacts.</p>{{end}}
  </div>

  <div class="card">
    <h2>Manifest</h2>
    <p class="muted">This report ships with a manifest.json for reproducibility.</p>
  </div>
</body>
</html>
`))
