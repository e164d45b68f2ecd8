// Package vidservice coordinates the store, the data-dir filesystem, and
// the external media tools behind the HTTP handlers.
package vidservice

import (
	"context"
	"strings"
	"time"

	"github.com/starford/vidunpack/internal/apperr"
	"github.com/starford/vidunpack/internal/export"
	"github.com/starford/vidunpack/internal/media"
	"github.com/starford/vidunpack/internal/pipeline"
	"github.com/starford/vidunpack/internal/profile"
	"github.com/starford/vidunpack/internal/remote"
	"github.com/starford/vidunpack/internal/sse"
	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
)

// projectDirs are created under projects/{id} when a project is made.
var projectDirs = []string{"media", "assets", "out", "tmp"}

// Service coordinates storage, store, and tool operations.
type Service struct {
	fs       *storage.FS
	db       *store.DB
	tools    media.Toolset
	pipeline *pipeline.Pipeline
	resolver *remote.Resolver
	exporter *export.Exporter
	profiles *profile.Manager
	broker   *sse.Broker
}

// NewService wires the service from its shared dependencies. The broker
// may be nil; events then only reach the store.
func NewService(fs *storage.FS, db *store.DB, tools media.Toolset, runner *media.Runner, broker *sse.Broker) *Service {
	return &Service{
		fs:       fs,
		db:       db,
		tools:    tools,
		pipeline: pipeline.New(fs, runner, tools),
		resolver: remote.New(fs, runner, tools),
		exporter: export.New(fs, db),
		profiles: profile.New(fs, db),
		broker:   broker,
	}
}

// Tools reports the tool availability snapshot taken at startup.
func (s *Service) Tools() media.Toolset { return s.tools }

func nowMS() int64 { return time.Now().UnixMilli() }

// event records an audit event and mirrors it to SSE subscribers.
func (s *Service) event(projectID string, tsMS int64, message string, data any) {
	s.db.LogEvent(projectID, tsMS, "info", message, data)
	if s.broker != nil {
		s.broker.PublishProjectEvent(projectID, message, data)
	}
}

func (s *Service) requireProject(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Invalidf("missing project id")
	}
	ok, err := s.db.ProjectExists(id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFoundf("project not found")
	}
	return nil
}

// CreateProject makes the project row and its working directories.
func (s *Service) CreateProject(_ context.Context, title string) (store.Project, error) {
	p, err := s.db.CreateProject(strings.TrimSpace(title), nowMS())
	if err != nil {
		return store.Project{}, err
	}
	for _, dir := range projectDirs {
		if err := s.fs.MkdirAll("projects/" + p.ID + "/" + dir); err != nil {
			return store.Project{}, err
		}
	}
	s.event(p.ID, p.CreatedAtMS, "project_created", map[string]any{"title": p.Title})
	return p, nil
}

// GetProject returns one project by id.
func (s *Service) GetProject(_ context.Context, id string) (store.Project, error) {
	if strings.TrimSpace(id) == "" {
		return store.Project{}, apperr.Invalidf("missing project id")
	}
	p, err := s.db.GetProject(id)
	if err != nil {
		return store.Project{}, err
	}
	if p == nil {
		return store.Project{}, apperr.NotFoundf("project not found")
	}
	return *p, nil
}

// ListProjects returns projects newest first.
func (s *Service) ListProjects(_ context.Context) ([]store.Project, error) {
	return s.db.ListProjects(0)
}

// Consent returns the project's consent pair, defaults when unset.
func (s *Service) Consent(_ context.Context, projectID string) (store.Consent, error) {
	if err := s.requireProject(projectID); err != nil {
		return store.Consent{}, err
	}
	return s.db.GetConsent(projectID)
}

// SetConsent merges the supplied fields over the stored pair. Revoking
// consent also clears auto_confirm.
func (s *Service) SetConsent(_ context.Context, projectID string, consented, autoConfirm *bool) (store.Consent, error) {
	if err := s.requireProject(projectID); err != nil {
		return store.Consent{}, err
	}
	ts := nowMS()
	c, err := s.db.UpsertConsent(projectID, consented, autoConfirm, ts)
	if err != nil {
		return store.Consent{}, err
	}
	s.event(projectID, ts, "consent_updated", map[string]any{
		"consented":    c.Consented,
		"auto_confirm": c.AutoConfirm,
	})
	return c, nil
}

// Settings returns the project settings, defaults when unset.
func (s *Service) Settings(_ context.Context, projectID string) (store.Settings, error) {
	if err := s.requireProject(projectID); err != nil {
		return store.Settings{}, err
	}
	return s.db.GetSettings(projectID)
}

// UpdateSettings overwrites the project settings.
func (s *Service) UpdateSettings(_ context.Context, projectID string, thinkEnabled bool) (store.Settings, error) {
	if err := s.requireProject(projectID); err != nil {
		return store.Settings{}, err
	}
	ts := nowMS()
	set, err := s.db.UpdateSettings(projectID, thinkEnabled, ts)
	if err != nil {
		return store.Settings{}, err
	}
	s.event(projectID, ts, "project_settings", map[string]any{"think_enabled": set.ThinkEnabled})
	return set, nil
}

// Events returns the newest audit events for a project.
func (s *Service) Events(_ context.Context, projectID string, limit int) ([]store.Event, error) {
	if err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	return s.db.ListEvents(projectID, limit)
}
