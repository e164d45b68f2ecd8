package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"path"

	"github.com/starford/vidunpack/internal/store"
)

// Flags selects which parts of a project go into an export zip. The
// zero value is not the default; see FlagsFromRequest.
type Flags struct {
	IncludeOriginalVideo bool
	IncludeReport        bool
	IncludeManifest      bool
	IncludeClips         bool
	IncludeAudio         bool
	IncludeThumbnails    bool
}

// FlagsFromRequest applies defaults over optional request fields: report,
// manifest, and the original video are in unless opted out; the derived
// media are out unless opted in.
func FlagsFromRequest(originalVideo, report, manifest, clips, audio, thumbnails *bool) Flags {
	pick := func(v *bool, def bool) bool {
		if v != nil {
			return *v
		}
		return def
	}
	return Flags{
		IncludeOriginalVideo: pick(originalVideo, true),
		IncludeReport:        pick(report, true),
		IncludeManifest:      pick(manifest, true),
		IncludeClips:         pick(clips, false),
		IncludeAudio:         pick(audio, false),
		IncludeThumbnails:    pick(thumbnails, false),
	}
}

// FileEstimate is one planned zip entry with its uncompressed size.
type FileEstimate struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

// Estimate is the dry-run result of an export.
type Estimate struct {
	TotalBytes int64          `json:"total_bytes"`
	Files      []FileEstimate `json:"files"`
}

// ZipResult describes a materialized export zip.
type ZipResult struct {
	ZipRel     string
	ZipName    string
	TotalBytes int64
}

// entry is one planned zip member. A rel of "" marks the generated
// selected-pool snapshot, whose bytes exist only in memory at planning
// time.
type entry struct {
	name string
	rel  string
}

var clipKinds = []string{"clip_start", "clip_mid", "clip_end"}
var thumbKinds = []string{"thumb_start", "thumb_mid", "thumb_end"}

// plan resolves the flags to concrete zip entries. Estimate and
// Materialize both run exactly this resolution, so the estimate can only
// diverge from the real zip if the underlying files change in between.
// Artifacts whose files are missing on disk are skipped silently.
func (e *Exporter) plan(projectID string, f Flags) ([]entry, error) {
	var entries []entry

	addLatest := func(kind, name string) error {
		a, err := e.db.LatestArtifact(projectID, kind)
		if err != nil {
			return err
		}
		if a == nil || !e.fs.Exists(a.Path) {
			return nil
		}
		if name == "" {
			name = path.Base(a.Path)
		}
		entries = append(entries, entry{name: name, rel: a.Path})
		return nil
	}

	if f.IncludeReport {
		if err := addLatest("report_html", "report.html"); err != nil {
			return nil, err
		}
	}
	if f.IncludeManifest {
		if err := addLatest("manifest_json", "manifest.json"); err != nil {
			return nil, err
		}
	}

	// The selected-pool snapshot is always shipped.
	entries = append(entries, entry{name: "selected_pool.json"})

	if f.IncludeOriginalVideo {
		a, err := e.db.LatestArtifact(projectID, "input_video")
		if err != nil {
			return nil, err
		}
		if a != nil && e.fs.Exists(a.Path) {
			entries = append(entries, entry{name: "input_video/" + path.Base(a.Path), rel: a.Path})
		}
	}
	if f.IncludeClips {
		for _, kind := range clipKinds {
			a, err := e.db.LatestArtifact(projectID, kind)
			if err != nil {
				return nil, err
			}
			if a != nil && e.fs.Exists(a.Path) {
				entries = append(entries, entry{name: "clips/" + path.Base(a.Path), rel: a.Path})
			}
		}
	}
	if f.IncludeAudio {
		a, err := e.db.LatestArtifact(projectID, "audio_wav")
		if err != nil {
			return nil, err
		}
		if a != nil && e.fs.Exists(a.Path) {
			entries = append(entries, entry{name: "audio/" + path.Base(a.Path), rel: a.Path})
		}
	}
	if f.IncludeThumbnails {
		for _, kind := range thumbKinds {
			a, err := e.db.LatestArtifact(projectID, kind)
			if err != nil {
				return nil, err
			}
			if a != nil && e.fs.Exists(a.Path) {
				entries = append(entries, entry{name: "thumbnails/" + path.Base(a.Path), rel: a.Path})
			}
		}
	}
	return entries, nil
}

// selectedPoolDoc fixes the field order of selected_pool.json.
type selectedPoolDoc struct {
	Version           int              `json:"version"`
	ProjectID         string           `json:"project_id"`
	GeneratedAtMS     int64            `json:"generated_at_ms"`
	SelectedPoolItems []store.PoolItem `json:"selected_pool_items"`
}

func (e *Exporter) selectedPoolBytes(projectID string, nowMS int64) ([]byte, error) {
	items, err := e.db.SelectedPoolItems(projectID)
	if err != nil {
		return nil, err
	}
	doc := selectedPoolDoc{Version: 1, ProjectID: projectID, GeneratedAtMS: nowMS, SelectedPoolItems: items}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal selected pool: %w", err)
	}
	return raw, nil
}

// EstimateZip reports what a zip built with these flags would contain and
// its total uncompressed size, without writing anything.
func (e *Exporter) EstimateZip(projectID string, f Flags, nowMS int64) (*Estimate, error) {
	entries, err := e.plan(projectID, f)
	if err != nil {
		return nil, err
	}
	est := &Estimate{Files: []FileEstimate{}}
	for _, ent := range entries {
		var size int64
		if ent.rel == "" {
			raw, err := e.selectedPoolBytes(projectID, nowMS)
			if err != nil {
				return nil, err
			}
			size = int64(len(raw))
		} else {
			size, err = e.fs.Size(ent.rel)
			if err != nil {
				return nil, err
			}
		}
		est.Files = append(est.Files, FileEstimate{Name: ent.name, Bytes: size})
		est.TotalBytes += size
	}
	return est, nil
}

// MaterializeZip writes the selected-pool snapshot and the export zip
// into the project's export directory. The total is the sum of
// uncompressed sizes, matching what EstimateZip would have reported.
// The caller registers the zip artifact and handles follow-up work.
func (e *Exporter) MaterializeZip(projectID string, f Flags, nowMS int64) (*ZipResult, error) {
	entries, err := e.plan(projectID, f)
	if err != nil {
		return nil, err
	}

	exportDir := exportDirRel(projectID)
	poolRaw, err := e.selectedPoolBytes(projectID, nowMS)
	if err != nil {
		return nil, err
	}
	if err := e.fs.Write(path.Join(exportDir, "selected_pool.json"), poolRaw); err != nil {
		return nil, fmt.Errorf("export: write selected pool: %w", err)
	}

	zipName := fmt.Sprintf("vidunpack-export-%s-%d.zip", projectID, nowMS)
	zipRel := path.Join(exportDir, zipName)
	out, err := e.fs.Create(zipRel)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	var total int64
	for _, ent := range entries {
		rel := ent.rel
		if rel == "" {
			rel = path.Join(exportDir, "selected_pool.json")
		}
		size, err := e.fs.Size(rel)
		if err != nil {
			return nil, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: ent.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("export: zip entry %s: %w", ent.name, err)
		}
		if _, err := e.fs.CopyTo(w, rel); err != nil {
			return nil, err
		}
		total += size
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: finish zip: %w", err)
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("export: sync zip: %w", err)
	}

	return &ZipResult{ZipRel: zipRel, ZipName: zipName, TotalBytes: total}, nil
}
