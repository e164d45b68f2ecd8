package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
	"github.com/starford/vidunpack/internal/testutil"
)

func testExporter(t *testing.T) (*Exporter, *store.DB, *storage.FS) {
	t.Helper()
	_, fs := testutil.TestDataDir(t)
	db, _ := testutil.TestDB(t)
	return New(fs, db), db, fs
}

func seedProject(t *testing.T, db *store.DB, fs *storage.FS) store.Project {
	t.Helper()
	p, err := db.CreateProject("demo", 1000)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	video := "projects/" + p.ID + "/media/input.mp4"
	if err := fs.Write(video, bytes.Repeat([]byte("v"), 5000)); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if _, err := db.EnsureArtifact(p.ID, "input_video", video, 1100); err != nil {
		t.Fatalf("EnsureArtifact: %v", err)
	}

	for i, kind := range clipKinds {
		rel := "projects/" + p.ID + "/out/ffmpeg/1_1/" + kind + ".mp4"
		_ = fs.Write(rel, bytes.Repeat([]byte("c"), 100*(i+1)))
		if _, err := db.EnsureArtifact(p.ID, kind, rel, 1200); err != nil {
			t.Fatalf("EnsureArtifact %s: %v", kind, err)
		}
	}
	audio := "projects/" + p.ID + "/out/ffmpeg/1_1/audio.wav"
	_ = fs.Write(audio, bytes.Repeat([]byte("a"), 700))
	if _, err := db.EnsureArtifact(p.ID, "audio_wav", audio, 1200); err != nil {
		t.Fatalf("EnsureArtifact audio: %v", err)
	}

	title := "City timelapse"
	url := "https://example.com/asset"
	if _, err := db.UpsertPoolItem(p.ID, store.PoolItemInput{
		Kind: "broll", Title: &title, SourceURL: &url, DedupKey: "url:" + url, Selected: true,
	}, 1300); err != nil {
		t.Fatalf("UpsertPoolItem: %v", err)
	}
	return p
}

func TestGenerateReportWritesBothFiles(t *testing.T) {
	e, db, fs := testExporter(t)
	p := seedProject(t, db, fs)

	res, err := e.GenerateReport(p, 2000)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}

	html, err := fs.Read(res.ReportRel)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"VidUnpack Report", "City timelapse", "https://example.com/asset", "Pool is empty"} {
		if want == "Pool is empty" {
			if strings.Contains(string(html), want) {
				t.Errorf("report claims empty pool")
			}
			continue
		}
		if !strings.Contains(string(html), want) {
			t.Errorf("report missing %q", want)
		}
	}

	raw, err := fs.Read(res.ManifestRel)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var doc struct {
		Version   int `json:"version"`
		Project   struct{ ID string }
		Artifacts []store.Artifact `json:"artifacts"`
		PoolItems []store.PoolItem `json:"pool_items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("manifest not json: %v", err)
	}
	if doc.Version != 1 || len(doc.Artifacts) == 0 || len(doc.PoolItems) != 1 {
		t.Errorf("manifest contents: %+v", doc)
	}
}

func TestReportEscapesHTML(t *testing.T) {
	e, db, fs := testExporter(t)
	p, _ := db.CreateProject("<script>alert(1)</script>", 1000)

	res, err := e.GenerateReport(*getProject(t, db, p.ID), 2000)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	html, _ := fs.Read(res.ReportRel)
	if strings.Contains(string(html), "<script>alert(1)</script>") {
		t.Error("project title not escaped")
	}
}

func getProject(t *testing.T, db *store.DB, id string) *store.Project {
	t.Helper()
	p, err := db.GetProject(id)
	if err != nil || p == nil {
		t.Fatalf("GetProject: %v %v", p, err)
	}
	return p
}

func TestEstimateMatchesMaterialize(t *testing.T) {
	combos := []Flags{
		FlagsFromRequest(nil, nil, nil, nil, nil, nil),
		{IncludeOriginalVideo: true, IncludeClips: true, IncludeAudio: true, IncludeThumbnails: true},
		{IncludeReport: true, IncludeManifest: true},
		{},
	}
	for i, flags := range combos {
		e, db, fs := testExporter(t)
		p := seedProject(t, db, fs)
		if _, err := e.GenerateReport(p, 1500); err != nil {
			t.Fatalf("GenerateReport: %v", err)
		}
		if _, err := db.EnsureArtifact(p.ID, "report_html", "projects/"+p.ID+"/out/export/report.html", 1500); err != nil {
			t.Fatal(err)
		}
		if _, err := db.EnsureArtifact(p.ID, "manifest_json", "projects/"+p.ID+"/out/export/manifest.json", 1500); err != nil {
			t.Fatal(err)
		}

		est, err := e.EstimateZip(p.ID, flags, 3000)
		if err != nil {
			t.Fatalf("combo %d EstimateZip: %v", i, err)
		}
		res, err := e.MaterializeZip(p.ID, flags, 3000)
		if err != nil {
			t.Fatalf("combo %d MaterializeZip: %v", i, err)
		}
		if res.TotalBytes != est.TotalBytes {
			t.Errorf("combo %d: materialized %d bytes, estimated %d", i, res.TotalBytes, est.TotalBytes)
		}
		if !fs.Exists(res.ZipRel) {
			t.Errorf("combo %d: zip not written", i)
		}
	}
}

func TestMaterializeZipContents(t *testing.T) {
	e, db, fs := testExporter(t)
	p := seedProject(t, db, fs)

	flags := Flags{IncludeOriginalVideo: true, IncludeClips: true, IncludeAudio: true}
	res, err := e.MaterializeZip(p.ID, flags, 3000)
	if err != nil {
		t.Fatalf("MaterializeZip: %v", err)
	}

	abs, err := fs.Abs(res.ZipRel)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.OpenReader(abs)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	want := []string{
		"selected_pool.json",
		"input_video/input.mp4",
		"clips/clip_start.mp4",
		"clips/clip_mid.mp4",
		"clips/clip_end.mp4",
		"audio/audio.wav",
	}
	for _, n := range want {
		if !names[n] {
			t.Errorf("zip missing %s (have %v)", n, names)
		}
	}
	// No report was generated, so report.html must be skipped silently.
	if names["report.html"] {
		t.Error("zip should not contain report.html")
	}
}

func TestMissingFilesSkippedSilently(t *testing.T) {
	e, db, fs := testExporter(t)
	p := seedProject(t, db, fs)

	// Register a thumbnail artifact whose file never got written.
	if _, err := db.EnsureArtifact(p.ID, "thumb_start", "projects/"+p.ID+"/out/ffmpeg/1_1/thumb_start.jpg", 1200); err != nil {
		t.Fatal(err)
	}
	est, err := e.EstimateZip(p.ID, Flags{IncludeThumbnails: true}, 3000)
	if err != nil {
		t.Fatalf("EstimateZip: %v", err)
	}
	for _, f := range est.Files {
		if strings.HasPrefix(f.Name, "thumbnails/") {
			t.Errorf("estimate includes missing file %s", f.Name)
		}
	}
}

func TestFlagsFromRequestDefaults(t *testing.T) {
	f := FlagsFromRequest(nil, nil, nil, nil, nil, nil)
	if !f.IncludeOriginalVideo || !f.IncludeReport || !f.IncludeManifest {
		t.Errorf("primary outputs should default on: %+v", f)
	}
	if f.IncludeClips || f.IncludeAudio || f.IncludeThumbnails {
		t.Errorf("derived media should default off: %+v", f)
	}
	no := false
	f = FlagsFromRequest(&no, nil, nil, nil, nil, nil)
	if f.IncludeOriginalVideo {
		t.Error("explicit false ignored")
	}
}
