// Package profile maintains the single-user memory aggregated across
// exports: which asset kinds and source domains keep recurring, and a
// prompt-sized digest of them.
package profile

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/vidunpack/internal/export"
	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
)

const (
	fileName        = "profile.json"
	topCountsLimit  = 5
	promptMaxChars  = 800
	summaryMaxChars = 400
)

// Count is one aggregated key with how often it was seen.
type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Memory is the persisted profile state.
type Memory struct {
	Version            int64   `json:"version"`
	UpdatedAtMS        int64   `json:"updated_at_ms"`
	ExportsSeen        int64   `json:"exports_seen"`
	KindCounts         []Count `json:"kind_counts"`
	SourceDomainCounts []Count `json:"source_domain_counts"`
	Prompt             string  `json:"prompt"`
	LastSessionSummary string  `json:"last_session_summary"`
}

// Manager loads, updates, and persists the profile. The DB row is the
// source of truth; profile.json at the data root is a mirror for other
// tools to read.
type Manager struct {
	fs *storage.FS
	db *store.DB
}

// New returns a manager bound to the data root and store.
func New(fs *storage.FS, db *store.DB) *Manager {
	return &Manager{fs: fs, db: db}
}

// RelPath returns the file mirror's path relative to the data root.
func (m *Manager) RelPath() string { return fileName }

// Load returns the stored profile, or a fresh one when none exists.
// Stored summaries that predate the structured format are folded in as
// plain text.
func (m *Manager) Load() (Memory, error) {
	summary, _, err := m.db.LoadProfileRow()
	if err != nil {
		return Memory{}, err
	}
	if summary == nil {
		return Memory{Version: 1}, nil
	}
	var mem Memory
	if err := json.Unmarshal([]byte(*summary), &mem); err != nil {
		return Memory{
			Version:            1,
			Prompt:             truncateChars(*summary, promptMaxChars),
			LastSessionSummary: truncateChars(*summary, summaryMaxChars),
		}, nil
	}
	if mem.Version <= 0 {
		mem.Version = 1
	}
	return mem, nil
}

// Save upserts the profile row and mirrors it to profile.json.
func (m *Manager) Save(mem Memory) error {
	raw, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}
	if err := m.db.SaveProfileRow(string(raw), mem.UpdatedAtMS); err != nil {
		return err
	}
	if err := m.fs.Write(fileName, raw); err != nil {
		return fmt.Errorf("profile: write mirror: %w", err)
	}
	return nil
}

// Reset deletes the profile row and its file mirror.
func (m *Manager) Reset() error {
	if err := m.db.ResetProfileRow(); err != nil {
		return err
	}
	if err := m.fs.Remove(fileName); err != nil {
		return fmt.Errorf("profile: remove mirror: %w", err)
	}
	return nil
}

// UpdateAfterExport folds one completed export into the profile: bumps
// the export counter, merges the project's selected kinds and input
// source domain into the running counts, records a one-line session
// summary as a project artifact, and rebuilds the prompt digest.
func (m *Manager) UpdateAfterExport(projectID string, ts int64, f export.Flags) error {
	kindCounts, kindOrder, err := m.db.SelectedKindCounts(projectID)
	if err != nil {
		return err
	}

	var domain string
	if latest, err := m.db.LatestArtifact(projectID, "input_url"); err != nil {
		return err
	} else if latest != nil {
		domain, _ = URLDomain(latest.Path)
	}

	summary := sessionSummary(domain, kindOrder, kindCounts, f)

	rel := path.Join("projects", projectID, "analysis", fmt.Sprintf("session_summary-%d.txt", ts))
	if err := m.fs.Write(rel, []byte(summary+"\n")); err != nil {
		return fmt.Errorf("profile: write session summary: %w", err)
	}
	art, err := m.db.EnsureArtifact(projectID, "session_summary", rel, ts)
	if err != nil {
		return err
	}
	if err := m.db.AppendEvent(projectID, ts, "info", "session_summary_generated",
		map[string]string{"artifact_id": art.ID, "path": rel}); err != nil {
		return err
	}

	mem, err := m.Load()
	if err != nil {
		return err
	}
	mem.ExportsSeen++
	mem.UpdatedAtMS = ts
	mem.LastSessionSummary = summary

	var adds []Count
	for _, kind := range kindOrder {
		adds = append(adds, Count{Key: kind, Count: kindCounts[kind]})
	}
	mem.KindCounts = MergeTopCounts(mem.KindCounts, adds, topCountsLimit)
	if domain != "" {
		mem.SourceDomainCounts = MergeTopCounts(mem.SourceDomainCounts, []Count{{Key: domain, Count: 1}}, topCountsLimit)
	}
	mem.Prompt = BuildPrompt(mem)

	if err := m.Save(mem); err != nil {
		return err
	}
	return m.db.AppendEvent(projectID, ts, "info", "profile_updated", map[string]string{"file": fileName})
}

func sessionSummary(domain string, kindOrder []string, kindCounts map[string]int64, f export.Flags) string {
	var parts []string
	if domain != "" {
		parts = append(parts, "source="+domain)
	}
	if len(kindOrder) > 0 {
		var selected []string
		for _, kind := range kindOrder {
			if kindCounts[kind] > 0 {
				selected = append(selected, fmt.Sprintf("%s(%d)", kind, kindCounts[kind]))
			}
		}
		if len(selected) > 0 {
			parts = append(parts, "selected="+strings.Join(selected, ", "))
		}
	}
	parts = append(parts,
		fmt.Sprintf("include_original_video=%t", f.IncludeOriginalVideo),
		fmt.Sprintf("include_report=%t", f.IncludeReport),
		fmt.Sprintf("include_manifest=%t", f.IncludeManifest),
		fmt.Sprintf("include_clips=%t", f.IncludeClips),
		fmt.Sprintf("include_audio=%t", f.IncludeAudio),
		fmt.Sprintf("include_thumbnails=%t", f.IncludeThumbnails),
	)
	return truncateChars("Exported; "+strings.Join(parts, "; "), summaryMaxChars)
}

// BuildPrompt renders the profile as a few prompt-ready lines.
func BuildPrompt(mem Memory) string {
	var lines []string
	if len(mem.KindCounts) > 0 {
		lines = append(lines, "Common selected asset kinds: "+joinCounts(mem.KindCounts))
	}
	if len(mem.SourceDomainCounts) > 0 {
		lines = append(lines, "Common input source domains: "+joinCounts(mem.SourceDomainCounts))
	}
	if s := strings.TrimSpace(mem.LastSessionSummary); s != "" {
		lines = append(lines, "Last export summary: "+s)
	}
	return truncateChars(strings.Join(lines, "\n"), promptMaxChars)
}

func joinCounts(counts []Count) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s(%d)", c.Key, c.Count))
	}
	return strings.Join(parts, ", ")
}

// MergeTopCounts sums adds into existing by key, drops blank keys, and
// keeps only the top entries, ordered by count descending then key
// ascending.
func MergeTopCounts(existing, adds []Count, limit int) []Count {
	merged := map[string]int64{}
	for _, c := range existing {
		merged[c.Key] = c.Count
	}
	for _, c := range adds {
		if strings.TrimSpace(c.Key) == "" {
			continue
		}
		merged[c.Key] += c.Count
	}
	out := make([]Count, 0, len(merged))
	for key, count := range merged {
		out = append(out, Count{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// URLDomain extracts the lowercased host from a URL-ish string. It
// tolerates missing schemes, userinfo, ports, and paths because input
// URLs arrive unvalidated.
func URLDomain(url string) (string, bool) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", false
	}
	rest := trimmed
	if _, after, ok := strings.Cut(trimmed, "://"); ok {
		rest = after
	}
	hostPort := rest
	if before, _, ok := strings.Cut(rest, "/"); ok {
		hostPort = before
	}
	if idx := strings.LastIndex(hostPort, "@"); idx >= 0 {
		hostPort = hostPort[idx+1:]
	}
	host := hostPort
	if before, _, ok := strings.Cut(hostPort, ":"); ok {
		host = before
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", false
	}
	return strings.ToLower(host), true
}

// truncateChars caps a string at max runes, appending an ellipsis when
// anything was cut.
func truncateChars(s string, max int) string {
	if max == 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
