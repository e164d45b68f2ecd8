// Package remote probes and downloads remote videos through yt-dlp.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/vidunpack/internal/media"
	"github.com/starford/vidunpack/internal/storage"
)

// cookiesEnv is consulted when a request does not name a browser to read
// cookies from.
const cookiesEnv = "YTDLP_COOKIES_FROM_BROWSER"

const maxDescriptionChars = 280

// Summary condenses a yt-dlp info document to the fields the API exposes.
type Summary struct {
	Extractor   string   `json:"extractor"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	DurationS   *float64 `json:"duration_s"`
	WebpageURL  string   `json:"webpage_url"`
	Thumbnail   *string  `json:"thumbnail"`
	Description *string  `json:"description"`
}

// Resolver runs yt-dlp against the data root.
type Resolver struct {
	fs     *storage.FS
	runner *media.Runner
	tools  media.Toolset
}

// New returns a resolver bound to the data root, runner, and tool
// snapshot.
func New(fs *storage.FS, runner *media.Runner, tools media.Toolset) *Resolver {
	return &Resolver{fs: fs, runner: runner, tools: tools}
}

// Probe fetches the remote video's metadata without downloading it,
// stores the raw info document under the project, and returns its
// relative path together with the parsed summary.
func (r *Resolver) Probe(ctx context.Context, projectID, url, cookiesFromBrowser string, nowMS int64) (string, Summary, error) {
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
	}
	args = appendCookies(args, cookiesFromBrowser)
	args = append(args, url)

	raw, err := r.runner.Output(ctx, r.tools.YtDlpBin, args...)
	if err != nil {
		return "", Summary{}, fmt.Errorf("remote: probe %s: %w", url, err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", Summary{}, fmt.Errorf("remote: probe %s: bad info document: %w", url, err)
	}

	infoRel := path.Join("projects", projectID, "out", "ytdlp", fmt.Sprintf("info-%d.json", nowMS))
	if err := r.fs.Write(infoRel, pretty.Bytes()); err != nil {
		return "", Summary{}, fmt.Errorf("remote: store info: %w", err)
	}
	return infoRel, ExtractSummary(raw, url), nil
}

// Download fetches the remote video into the project's media directory
// and returns the relative path of the downloaded file. The summary
// should come from a prior Probe of the same URL; its extractor and id
// seed a stable file name.
func (r *Resolver) Download(ctx context.Context, projectID, url, cookiesFromBrowser string, sum Summary, nowMS int64) (string, error) {
	outRel := path.Join("projects", projectID, "media", "remote")
	if err := r.fs.MkdirAll(outRel); err != nil {
		return "", fmt.Errorf("remote: create media dir: %w", err)
	}
	outAbs, err := r.fs.Abs(outRel)
	if err != nil {
		return "", err
	}

	base := downloadBase(sum, nowMS)
	args := []string{
		"--no-playlist",
		"--restrict-filenames",
		"--no-warnings",
		"--no-progress",
		"--merge-output-format", "mp4",
	}
	args = appendCookies(args, cookiesFromBrowser)
	args = append(args, "-o", filepath.Join(outAbs, base+".%(ext)s"), url)

	if err := r.runner.Run(ctx, r.tools.YtDlpBin, args...); err != nil {
		return "", fmt.Errorf("remote: download %s: %w", url, err)
	}

	picked, err := pickDownloadedFile(outAbs, base)
	if err != nil {
		return "", err
	}
	return path.Join(outRel, picked), nil
}

func appendCookies(args []string, fromBrowser string) []string {
	if fromBrowser == "" {
		fromBrowser = os.Getenv(cookiesEnv)
	}
	if fromBrowser != "" {
		args = append(args, "--cookies-from-browser", fromBrowser)
	}
	return args
}

// downloadBase derives the output file stem from extractor and id,
// falling back to a timestamped name when both are unusable.
func downloadBase(sum Summary, nowMS int64) string {
	ext := storage.SanitizeFileName(sum.Extractor, "")
	id := storage.SanitizeFileName(sum.ID, "")
	base := ext + "-" + id
	if strings.Trim(base, "-_.") == "" {
		return fmt.Sprintf("remote-%d", nowMS)
	}
	return base
}

// pickDownloadedFile locates what yt-dlp actually wrote. The merged mp4
// is the expected name, but some extractors keep the source container, so
// fall back to the newest file sharing the stem.
func pickDownloadedFile(dirAbs, base string) (string, error) {
	if info, err := os.Stat(filepath.Join(dirAbs, base+".mp4")); err == nil && info.Mode().IsRegular() {
		return base + ".mp4", nil
	}
	entries, err := os.ReadDir(dirAbs)
	if err != nil {
		return "", fmt.Errorf("remote: scan media dir: %w", err)
	}
	var bestName string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), base) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixMilli(); bestName == "" || mod > bestMod {
			bestName, bestMod = e.Name(), mod
		}
	}
	if bestName == "" {
		return "", fmt.Errorf("remote: no downloaded file found for %s", base)
	}
	return bestName, nil
}

// ExtractSummary reduces a raw yt-dlp info document to a Summary.
// Missing fields get placeholder values rather than failing the request:
// extractors vary wildly in what they fill in.
func ExtractSummary(raw []byte, requestURL string) Summary {
	var doc struct {
		Extractor    string          `json:"extractor"`
		ExtractorKey string          `json:"extractor_key"`
		ID           string          `json:"id"`
		Title        string          `json:"title"`
		WebpageURL   string          `json:"webpage_url"`
		Duration     json.RawMessage `json:"duration"`
		Thumbnail    string          `json:"thumbnail"`
		Description  string          `json:"description"`
	}
	_ = json.Unmarshal(raw, &doc)

	sum := Summary{
		Extractor:  doc.Extractor,
		ID:         doc.ID,
		Title:      doc.Title,
		DurationS:  optionalNumber(doc.Duration),
		WebpageURL: doc.WebpageURL,
	}
	if sum.Extractor == "" {
		sum.Extractor = doc.ExtractorKey
	}
	if sum.Extractor == "" {
		sum.Extractor = "unknown"
	}
	if sum.ID == "" {
		sum.ID = "unknown"
	}
	if sum.Title == "" {
		sum.Title = "untitled"
	}
	if sum.WebpageURL == "" {
		sum.WebpageURL = requestURL
	}
	if thumb := strings.TrimSpace(doc.Thumbnail); thumb != "" {
		sum.Thumbnail = &thumb
	}
	if desc := collapseDescription(doc.Description); desc != "" {
		sum.Description = &desc
	}
	return sum
}

// optionalNumber decodes a JSON value that may be a number or a numeric
// string, keeping "absent" distinct from zero.
func optionalNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

// collapseDescription flattens a multi-line description to one line and
// caps its length.
func collapseDescription(desc string) string {
	oneLine := strings.Join(strings.Fields(desc), " ")
	runes := []rune(oneLine)
	if len(runes) > maxDescriptionChars {
		return string(runes[:maxDescriptionChars]) + "…"
	}
	return oneLine
}
