package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/starford/vidunpack/internal/media"
	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
	"github.com/starford/vidunpack/internal/testutil"
	"github.com/starford/vidunpack/internal/vidservice"
)

// testEnv sets up a temp data dir, SQLite DB, service, and router. The
// toolset is what Detect would have reported at startup; tests pick the
// availability they need.
func testEnv(t *testing.T, tools media.Toolset) (http.Handler, *storage.FS) {
	t.Helper()

	_, fs := testutil.TestDataDir(t)
	db, dbPath := testutil.TestDB(t)

	svc := vidservice.NewService(fs, db, tools, media.NewRunner(1), nil)
	return NewRouter(svc, fs, dbPath, false, "", nil), fs
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createProject(t *testing.T, router http.Handler, title string) store.Project {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/projects", map[string]string{"title": title})
	if w.Code != http.StatusOK {
		t.Fatalf("create project = %d, body %s", w.Code, w.Body.String())
	}
	return decode[store.Project](t, w)
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body %q: %v", w.Body.String(), err)
	}
	if e.OK {
		t.Errorf("error body should carry ok=false: %s", w.Body.String())
	}
	return e.Error
}

func multipartBody(t *testing.T, field, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{FFmpegOK: true})

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	h := decode[map[string]any](t, w)
	if h["ok"] != true || h["service"] != "vidunpack" {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
	if h["ffmpeg"] != true || h["ytdlp"] != false {
		t.Errorf("tool flags not reported: %s", w.Body.String())
	}
}

func TestCreateAndGetProject(t *testing.T) {
	router, fs := testEnv(t, media.Toolset{})

	p := createProject(t, router, "demo")
	if p.Title != "demo" || p.ID == "" {
		t.Fatalf("project = %+v", p)
	}
	for _, dir := range []string{"media", "assets", "out", "tmp"} {
		if !dirExists(fs, "projects/"+p.ID+"/"+dir) {
			t.Errorf("missing project dir %s", dir)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/projects/"+p.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get project = %d", w.Code)
	}
	got := decode[store.Project](t, w)
	if got.ID != p.ID || got.CreatedAtMS != p.CreatedAtMS {
		t.Errorf("got %+v, want %+v", got, p)
	}

	w = doJSON(t, router, http.MethodGet, "/projects", nil)
	if n := len(decode[[]store.Project](t, w)); n != 1 {
		t.Errorf("list length = %d", n)
	}
}

func dirExists(fs *storage.FS, rel string) bool {
	abs, err := fs.Abs(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

func TestProjectNotFound(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})

	w := doJSON(t, router, http.MethodGet, "/projects/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "project not found" {
		t.Errorf("error = %q", msg)
	}
}

func TestConsentLifecycle(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "consent")

	w := doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/consent", nil)
	c := decode[store.Consent](t, w)
	if c.Consented || c.AutoConfirm {
		t.Fatalf("defaults = %+v", c)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/consent", map[string]bool{"consented": true, "auto_confirm": true})
	c = decode[store.Consent](t, w)
	if !c.Consented || !c.AutoConfirm {
		t.Fatalf("after grant = %+v", c)
	}

	// Merge semantics: omitted consented keeps the stored value.
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/consent", map[string]bool{"auto_confirm": false})
	c = decode[store.Consent](t, w)
	if !c.Consented || c.AutoConfirm {
		t.Fatalf("after merge = %+v", c)
	}

	// Revoking consent always clears auto_confirm.
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/consent", map[string]bool{"consented": false, "auto_confirm": true})
	c = decode[store.Consent](t, w)
	if c.Consented || c.AutoConfirm {
		t.Fatalf("after revoke = %+v", c)
	}
}

func TestSettings(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "settings")

	w := doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/settings", nil)
	s := decode[store.Settings](t, w)
	if !s.ThinkEnabled {
		t.Fatalf("think_enabled should default on: %+v", s)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/settings", map[string]bool{"think_enabled": false})
	if s = decode[store.Settings](t, w); s.ThinkEnabled {
		t.Fatalf("after update = %+v", s)
	}
}

func TestPoolDedupByNormalizedURL(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "pool")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{
		"kind": "link", "url": "https://Example.com/A/#section",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add = %d, body %s", w.Code, w.Body.String())
	}
	first := decode[store.PoolItem](t, w)
	if first.DedupKey != "url:https://example.com/a" {
		t.Errorf("dedup key = %q", first.DedupKey)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{
		"kind": "video", "source_url": "https://example.com/a/",
	})
	second := decode[store.PoolItem](t, w)
	if second.ID != first.ID {
		t.Errorf("ids differ: %s vs %s", first.ID, second.ID)
	}
	if second.Kind != "video" {
		t.Errorf("kind not overwritten: %q", second.Kind)
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/pool/items", nil)
	if n := len(decode[[]store.PoolItem](t, w)); n != 1 {
		t.Errorf("pool length = %d, want 1", n)
	}
}

func TestPoolItemDataFallsBackToSourceURL(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "pool")

	// source_url alone, no url and no data payload.
	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{
		"kind": "link", "source_url": "https://example.test/clip",
	})
	item := decode[store.PoolItem](t, w)
	if item.DataJSON == nil {
		t.Fatal("data_json should be synthesized from source_url")
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(*item.DataJSON), &data); err != nil {
		t.Fatalf("data_json %q: %v", *item.DataJSON, err)
	}
	if data["url"] != "https://example.test/clip" {
		t.Errorf("data url = %q", data["url"])
	}

	// An explicit payload wins over the fallback.
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{
		"kind": "link", "source_url": "https://example.test/other", "data": map[string]int{"rank": 3},
	})
	item = decode[store.PoolItem](t, w)
	if item.DataJSON == nil || *item.DataJSON != `{"rank":3}` {
		t.Errorf("data_json = %v", item.DataJSON)
	}
}

func TestPoolItemMissingKind(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "pool")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{"url": "https://x.test"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "missing kind" {
		t.Errorf("error = %q", msg)
	}
}

func TestPoolSelection(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "pool")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{"kind": "link", "url": "https://a.test"})
	item := decode[store.PoolItem](t, w)
	if !item.Selected {
		t.Fatal("new items should default selected")
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items/"+item.ID+"/selected", map[string]bool{"selected": false})
	if got := decode[store.PoolItem](t, w); got.Selected {
		t.Errorf("still selected: %+v", got)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items/ghost/selected", map[string]bool{"selected": true})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "pool item not found" {
		t.Errorf("error = %q", msg)
	}
}

func TestTextArtifact(t *testing.T) {
	router, fs := testEnv(t, media.Toolset{})
	p := createProject(t, router, "text")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/artifacts/text", map[string]string{
		"kind": "note", "out_path": "notes/hello.txt", "content": "hi",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create = %d, body %s", w.Code, w.Body.String())
	}
	art := decode[store.Artifact](t, w)
	if art.Path != "projects/"+p.ID+"/out/notes/hello.txt" {
		t.Errorf("path = %q", art.Path)
	}
	data, err := fs.Read(art.Path)
	if err != nil || string(data) != "hi" {
		t.Errorf("stored content = %q, err %v", data, err)
	}

	// Same kind and path registers once.
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/artifacts/text", map[string]string{
		"kind": "note", "out_path": "notes/hello.txt", "content": "rewritten",
	})
	if again := decode[store.Artifact](t, w); again.ID != art.ID {
		t.Errorf("ids differ across re-registration")
	}
}

func TestTextArtifactTraversalSanitized(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "text")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/artifacts/text", map[string]string{
		"kind": "note", "out_path": "../../../etc/passwd", "content": "x",
	})
	art := decode[store.Artifact](t, w)
	if art.Path != "projects/"+p.ID+"/out/etc/passwd" {
		t.Errorf("traversal survived sanitization: %q", art.Path)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/artifacts/text", map[string]string{
		"kind": "note", "out_path": "..", "content": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "invalid out_path" {
		t.Errorf("error = %q", msg)
	}
}

func TestUploadArtifact(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "upload")

	body, ctype := multipartBody(t, "file", "paper.pdf", []byte("%PDF-fake"))
	req := httptest.NewRequest(http.MethodPost, "/projects/"+p.ID+"/artifacts/upload", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body %s", w.Code, w.Body.String())
	}
	res := decode[vidservice.UploadResult](t, w)
	if res.Bytes != int64(len("%PDF-fake")) || res.FileName != "paper.pdf" {
		t.Errorf("result = %+v", res)
	}
	if res.Artifact.Kind != "upload" {
		t.Errorf("kind = %q", res.Artifact.Kind)
	}

	// No file part at all.
	var empty bytes.Buffer
	mw := multipart.NewWriter(&empty)
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/projects/"+p.ID+"/artifacts/upload", &empty)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "missing multipart field 'file'" {
		t.Errorf("error = %q", msg)
	}
}

func TestArtifactRaw(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "raw")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/artifacts/text", map[string]string{
		"kind": "note", "out_path": "hello.txt", "content": "raw body",
	})
	art := decode[store.Artifact](t, w)

	req := httptest.NewRequest(http.MethodGet, "/projects/"+p.ID+"/artifacts/"+art.ID+"/raw", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("raw = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}
	if rec.Body.String() != "raw body" {
		t.Errorf("body = %q", rec.Body.String())
	}

	// URL artifacts have nothing to stream.
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/inputs/url", map[string]string{"url": "https://example.test/v"})
	urlArt := decode[store.Artifact](t, w)
	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/artifacts/"+urlArt.ID+"/raw", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("url raw = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "artifact is not a file" {
		t.Errorf("error = %q", msg)
	}
}

func TestAddInputURL(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "urls")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/inputs/url", map[string]string{"url": "ftp://nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "url must start with http:// or https://" {
		t.Errorf("error = %q", msg)
	}

	// The same URL twice is two rows; history is append-only.
	for i := 0; i < 2; i++ {
		w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/inputs/url", map[string]string{"url": "https://example.test/v"})
		if w.Code != http.StatusOK {
			t.Fatalf("add %d = %d", i, w.Code)
		}
	}
	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/artifacts", nil)
	if n := len(decode[[]store.Artifact](t, w)); n != 2 {
		t.Errorf("artifact count = %d, want 2", n)
	}
}

func TestImportLocalVideo(t *testing.T) {
	router, fs := testEnv(t, media.Toolset{})
	p := createProject(t, router, "local")

	body, ctype := multipartBody(t, "file", "holiday clip.mp4", []byte("not really mp4"))
	req := httptest.NewRequest(http.MethodPost, "/projects/"+p.ID+"/media/local", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body %s", w.Code, w.Body.String())
	}
	res := decode[vidservice.UploadResult](t, w)
	if res.Artifact.Kind != "input_video" {
		t.Errorf("kind = %q", res.Artifact.Kind)
	}
	if !strings.HasSuffix(res.FileName, "_holiday_clip.mp4") {
		t.Errorf("file name = %q", res.FileName)
	}
	if !fs.Exists(res.Artifact.Path) {
		t.Errorf("file missing at %s", res.Artifact.Path)
	}
}

func TestRemoteMediaPreconditions(t *testing.T) {
	// No yt-dlp: rejected before anything else.
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "remote")
	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/media/remote", map[string]any{"url": "https://example.test/v"})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); !strings.Contains(msg, "yt-dlp not found") {
		t.Errorf("error = %q", msg)
	}

	// yt-dlp present, download requested, ffmpeg missing.
	router, _ = testEnv(t, media.Toolset{YtDlpOK: true})
	p = createProject(t, router, "remote")
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/media/remote", map[string]any{"url": "https://example.test/v", "download": true})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); !strings.Contains(msg, "ffmpeg not found") {
		t.Errorf("error = %q", msg)
	}

	// Tools present but consent never granted.
	router, _ = testEnv(t, media.Toolset{YtDlpOK: true, FFmpegOK: true})
	p = createProject(t, router, "remote")
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/media/remote", map[string]any{"url": "https://example.test/v"})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "consent required: save URL and confirm consent first" {
		t.Errorf("error = %q", msg)
	}
}

func TestPipelinePreconditions(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "pipe")
	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pipeline/ffmpeg", map[string]string{"input_artifact_id": "x"})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := errorOf(t, w); !strings.Contains(msg, "ffmpeg/ffprobe not found") {
		t.Errorf("error = %q", msg)
	}

	router, fs := testEnv(t, media.Toolset{FFmpegOK: true, FFprobeOK: true})
	p = createProject(t, router, "pipe")

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pipeline/ffmpeg", map[string]string{"input_artifact_id": "ghost"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing artifact = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "input artifact not found" {
		t.Errorf("error = %q", msg)
	}

	// Wrong kind.
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/inputs/url", map[string]string{"url": "https://example.test/v"})
	urlArt := decode[store.Artifact](t, w)
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pipeline/ffmpeg", map[string]string{"input_artifact_id": urlArt.ID})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("wrong kind = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "artifact kind must be input_video" {
		t.Errorf("error = %q", msg)
	}

	// Right kind, file gone from disk.
	body, ctype := multipartBody(t, "file", "v.mp4", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/projects/"+p.ID+"/media/local", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	res := decode[vidservice.UploadResult](t, rec)
	if err := fs.Remove(res.Artifact.Path); err != nil {
		t.Fatal(err)
	}
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pipeline/ffmpeg", map[string]string{"input_artifact_id": res.Artifact.ID})
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("missing file = %d", w.Code)
	}
	if msg := errorOf(t, w); !strings.HasPrefix(msg, "input file missing on disk: ") {
		t.Errorf("error = %q", msg)
	}
}

func TestChatFlow(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "chat")

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/chats", map[string]string{})
	chat := decode[store.Chat](t, w)
	if !strings.HasPrefix(chat.Title, "Chat ") {
		t.Errorf("default title = %q", chat.Title)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/chats/"+chat.ID+"/messages", map[string]string{
		"role": "narrator", "content": "hi",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad role = %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "invalid role" {
		t.Errorf("error = %q", msg)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/chats/"+chat.ID+"/messages", map[string]string{
		"role": "user", "content": "",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty message = %d", w.Code)
	}

	for _, content := range []string{"first", "second"} {
		w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/chats/"+chat.ID+"/messages", map[string]any{
			"role": "user", "content": content, "data": map[string]int{"n": 1},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("create message = %d, body %s", w.Code, w.Body.String())
		}
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/chats/"+chat.ID+"/messages", nil)
	var msgs []struct {
		Content string          `json:"content"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "first" {
		t.Fatalf("messages = %+v", msgs)
	}
	if string(msgs[0].Data) != `{"n":1}` {
		t.Errorf("data round-trip = %s", msgs[0].Data)
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/chats/ghost/messages", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("ghost chat = %d", w.Code)
	}
}

func TestReportAndExportFlow(t *testing.T) {
	router, fs := testEnv(t, media.Toolset{})
	p := createProject(t, router, "bundle")

	body, ctype := multipartBody(t, "file", "v.mp4", bytes.Repeat([]byte("v"), 1024))
	req := httptest.NewRequest(http.MethodPost, "/projects/"+p.ID+"/media/local", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d", rec.Code)
	}

	doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{
		"kind": "link", "url": "https://example.test/src", "title": "Source",
	})

	w := doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/exports/report", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d, body %s", w.Code, w.Body.String())
	}
	rep := decode[vidservice.ReportArtifacts](t, w)
	if !fs.Exists(rep.Report.Path) || !fs.Exists(rep.Manifest.Path) {
		t.Fatalf("report files missing: %+v", rep)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/exports/zip/estimate", map[string]any{})
	var est struct {
		TotalBytes int64 `json:"total_bytes"`
		Files      []struct {
			Name  string `json:"name"`
			Bytes int64  `json:"bytes"`
		} `json:"files"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &est); err != nil {
		t.Fatal(err)
	}
	if est.TotalBytes == 0 || len(est.Files) == 0 {
		t.Fatalf("estimate = %+v", est)
	}

	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/exports/zip", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("zip = %d, body %s", w.Code, w.Body.String())
	}
	zres := decode[vidservice.ExportZipResult](t, w)
	if zres.TotalBytes != est.TotalBytes {
		t.Errorf("estimate %d != materialized %d", est.TotalBytes, zres.TotalBytes)
	}
	if !strings.HasPrefix(zres.DownloadURL, fmt.Sprintf("/projects/%s/exports/download/", p.ID)) {
		t.Fatalf("download url = %q", zres.DownloadURL)
	}

	req = httptest.NewRequest(http.MethodGet, zres.DownloadURL, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("download = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Errorf("content type = %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty zip download")
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/exports/download/ghost.zip", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("ghost download = %d", w.Code)
	}
}

func TestImportManifest(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})

	manifest := map[string]any{
		"version": 1,
		"project": map[string]any{"title": "Old Project"},
		"pool_items": []map[string]any{
			{"kind": "video", "source_url": "https://example.test/v", "selected": false},
			{"title": "no kind falls back to link"},
		},
	}
	w := doJSON(t, router, http.MethodPost, "/projects/import/manifest", manifest)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body %s", w.Code, w.Body.String())
	}
	p := decode[store.Project](t, w)
	if p.Title != "imported: Old Project" {
		t.Errorf("title = %q", p.Title)
	}

	w = doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/pool/items", nil)
	items := decode[[]store.PoolItem](t, w)
	if len(items) != 2 {
		t.Fatalf("pool length = %d", len(items))
	}
	kinds := map[string]bool{}
	for _, it := range items {
		kinds[it.Kind] = true
	}
	if !kinds["video"] || !kinds["link"] {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestProfileEndpoints(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})

	w := doJSON(t, router, http.MethodGet, "/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile = %d", w.Code)
	}
	info := decode[vidservice.ProfileInfo](t, w)
	if info.Profile.Version != 1 || info.Profile.ExportsSeen != 0 {
		t.Fatalf("fresh profile = %+v", info.Profile)
	}
	if info.RelPath != "profile.json" {
		t.Errorf("rel path = %q", info.RelPath)
	}

	// One export feeds the aggregate.
	p := createProject(t, router, "prof")
	doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{"kind": "link", "url": "https://example.test/a"})
	w = doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/exports/zip", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/profile", nil)
	info = decode[vidservice.ProfileInfo](t, w)
	if info.Profile.ExportsSeen != 1 {
		t.Errorf("exports seen = %d", info.Profile.ExportsSeen)
	}
	if info.Profile.Prompt == "" {
		t.Error("prompt should be rebuilt")
	}

	w = doJSON(t, router, http.MethodPost, "/profile/reset", nil)
	info = decode[vidservice.ProfileInfo](t, w)
	if info.Profile.ExportsSeen != 0 || info.Profile.Version != 1 {
		t.Errorf("after reset = %+v", info.Profile)
	}
}

func TestEventsTrail(t *testing.T) {
	router, _ := testEnv(t, media.Toolset{})
	p := createProject(t, router, "trail")
	doJSON(t, router, http.MethodPost, "/projects/"+p.ID+"/pool/items", map[string]any{"kind": "link", "url": "https://example.test/a"})

	w := doJSON(t, router, http.MethodGet, "/projects/"+p.ID+"/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events = %d", w.Code)
	}
	events := decode[[]store.Event](t, w)
	seen := map[string]bool{}
	for _, e := range events {
		seen[e.Message] = true
	}
	if !seen["project_created"] || !seen["pool_item_upsert"] {
		t.Errorf("messages = %v", seen)
	}
}

func authEnv(t *testing.T, token string) http.Handler {
	t.Helper()
	_, fs := testutil.TestDataDir(t)
	db, dbPath := testutil.TestDB(t)
	svc := vidservice.NewService(fs, db, media.Toolset{}, media.NewRunner(1), nil)
	return NewRouter(svc, fs, dbPath, token != "", token, nil)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := authEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"title":"authed"}`))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed create = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := authEnv(t, "secret123")

	w := doJSON(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if msg := errorOf(t, w); msg != "unauthorized" {
		t.Errorf("error = %q", msg)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := authEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_HealthBypassed(t *testing.T) {
	router := authEnv(t, "secret123")

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health = %d, want 200 without a token", w.Code)
	}
}
