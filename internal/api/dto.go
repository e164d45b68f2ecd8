package api

import (
	"encoding/json"

	"github.com/starford/vidunpack/internal/vidservice"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Title *string `json:"title"`
}

// ConsentRequest merges over the stored consent pair; omitted fields
// keep their current value.
type ConsentRequest struct {
	Consented   *bool `json:"consented"`
	AutoConfirm *bool `json:"auto_confirm"`
}

// SettingsRequest is the request body for updating project settings.
type SettingsRequest struct {
	ThinkEnabled bool `json:"think_enabled"`
}

// CreateChatRequest is the request body for opening a chat thread.
type CreateChatRequest struct {
	Title *string `json:"title"`
}

// CreateChatMessageRequest is the request body for appending a message.
type CreateChatMessageRequest struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
}

// PoolItemRequest is the request body for a pool submission.
type PoolItemRequest struct {
	Kind      string          `json:"kind"`
	Title     *string         `json:"title"`
	SourceURL *string         `json:"source_url"`
	URL       *string         `json:"url"`
	License   *string         `json:"license"`
	DedupKey  *string         `json:"dedup_key"`
	Selected  *bool           `json:"selected"`
	Data      json.RawMessage `json:"data"`
}

// SelectPoolItemRequest flips one pool item's selection flag.
type SelectPoolItemRequest struct {
	Selected bool `json:"selected"`
}

// TextArtifactRequest is the request body for writing a text artifact.
type TextArtifactRequest struct {
	Kind    string `json:"kind"`
	OutPath string `json:"out_path"`
	Content string `json:"content"`
}

// InputURLRequest registers a source URL.
type InputURLRequest struct {
	URL string `json:"url"`
}

// RemoteImportRequest resolves and optionally downloads a remote video.
type RemoteImportRequest struct {
	URL                string `json:"url"`
	Download           bool   `json:"download"`
	CookiesFromBrowser string `json:"cookies_from_browser"`
}

// PipelineRequest names the input video to derive from.
type PipelineRequest struct {
	InputArtifactID string `json:"input_artifact_id"`
}

// ExportZipRequest selects the parts of a project to export. Omitted
// fields take the defaults: report, manifest, and original video in;
// derived media out.
type ExportZipRequest struct {
	IncludeOriginalVideo *bool `json:"include_original_video"`
	IncludeReport        *bool `json:"include_report"`
	IncludeManifest      *bool `json:"include_manifest"`
	IncludeClips         *bool `json:"include_clips"`
	IncludeAudio         *bool `json:"include_audio"`
	IncludeThumbnails    *bool `json:"include_thumbnails"`
}

// RemoteImportResult is the remote import response (aliased from the domain layer).
type RemoteImportResult = vidservice.RemoteImportResult

// PipelineResult is the pipeline response (aliased from the domain layer).
type PipelineResult = vidservice.PipelineResult

// ProfileInfo is the profile response (aliased from the domain layer).
type ProfileInfo = vidservice.ProfileInfo
