package store

// Project is a row in the projects table.
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

// Artifact is a registered reference to a file or URL, unique per
// (project, kind, path).
type Artifact struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Kind        string `json:"kind"`
	Path        string `json:"path"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

// PoolItem is a candidate external asset, unique per (project, dedup key).
type PoolItem struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Kind        string  `json:"kind"`
	Title       *string `json:"title"`
	SourceURL   *string `json:"source_url"`
	License     *string `json:"license"`
	DedupKey    string  `json:"dedup_key"`
	DataJSON    *string `json:"data_json"`
	Selected    bool    `json:"selected"`
	CreatedAtMS int64   `json:"created_at_ms"`
}

// Consent is the per-project network-fetch permission pair.
type Consent struct {
	ProjectID   string `json:"project_id"`
	Consented   bool   `json:"consented"`
	AutoConfirm bool   `json:"auto_confirm"`
	UpdatedAtMS int64  `json:"updated_at_ms"`
}

// Settings holds per-project settings.
type Settings struct {
	ProjectID    string `json:"project_id"`
	ThinkEnabled bool   `json:"think_enabled"`
	UpdatedAtMS  int64  `json:"updated_at_ms"`
}

// Chat is a conversation thread within a project.
type Chat struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	CreatedAtMS int64  `json:"created_at_ms"`
}

// ChatMessage is one message in a chat thread.
type ChatMessage struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	ChatID      string  `json:"chat_id"`
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	DataJSON    *string `json:"data_json"`
	CreatedAtMS int64   `json:"created_at_ms"`
}

// Event is an append-only audit record for a project.
type Event struct {
	ID        int64   `json:"id"`
	ProjectID string  `json:"project_id"`
	TsMS      int64   `json:"ts_ms"`
	Level     string  `json:"level"`
	Message   string  `json:"message"`
	DataJSON  *string `json:"data_json"`
}
