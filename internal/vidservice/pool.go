package vidservice

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/vidunpack/internal/apperr"
	"github.com/starford/vidunpack/internal/store"
)

// PoolItemRequest carries the caller's pool submission. URL is a
// shorthand for SourceURL; without an explicit data payload the
// resolved source URL becomes the payload.
type PoolItemRequest struct {
	Kind      string
	Title     *string
	SourceURL *string
	URL       *string
	License   *string
	DedupKey  *string
	Selected  *bool
	Data      json.RawMessage
}

// normalizeURLForDedup canonicalizes a source URL for dedup keying:
// fragment dropped, trailing slashes trimmed, lowercased.
func normalizeURLForDedup(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.Index(u, "#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	return strings.ToLower(u)
}

// AddPoolItem upserts a candidate asset keyed by its dedup key: an
// explicit key wins, else the normalized source URL, else a random key
// that never collides.
func (s *Service) AddPoolItem(_ context.Context, projectID string, req PoolItemRequest) (store.PoolItem, error) {
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		return store.PoolItem{}, apperr.Invalidf("missing kind")
	}
	if err := s.requireProject(projectID); err != nil {
		return store.PoolItem{}, err
	}

	var sourceURL *string
	for _, cand := range []*string{req.SourceURL, req.URL} {
		if cand == nil {
			continue
		}
		if v := strings.TrimSpace(*cand); v != "" {
			sourceURL = &v
			break
		}
	}

	dedupKey := ""
	if req.DedupKey != nil {
		dedupKey = strings.TrimSpace(*req.DedupKey)
	}
	if dedupKey == "" {
		if sourceURL != nil {
			dedupKey = "url:" + normalizeURLForDedup(*sourceURL)
		} else {
			dedupKey = "random:" + uuid.NewString()
		}
	}

	var dataJSON *string
	switch {
	case len(req.Data) > 0:
		v := string(req.Data)
		dataJSON = &v
	case sourceURL != nil:
		b, err := json.Marshal(map[string]string{"url": *sourceURL})
		if err != nil {
			return store.PoolItem{}, err
		}
		v := string(b)
		dataJSON = &v
	}

	selected := true
	if req.Selected != nil {
		selected = *req.Selected
	}

	ts := nowMS()
	item, err := s.db.UpsertPoolItem(projectID, store.PoolItemInput{
		Kind:      kind,
		Title:     req.Title,
		SourceURL: sourceURL,
		License:   req.License,
		DedupKey:  dedupKey,
		DataJSON:  dataJSON,
		Selected:  selected,
	}, ts)
	if err != nil {
		return store.PoolItem{}, err
	}
	s.event(projectID, ts, "pool_item_upsert", map[string]any{
		"kind":       kind,
		"dedup_key":  dedupKey,
		"source_url": sourceURL,
	})
	return item, nil
}

// SetPoolItemSelected flips the selection flag on one pool item.
func (s *Service) SetPoolItemSelected(_ context.Context, projectID, itemID string, selected bool) (store.PoolItem, error) {
	if strings.TrimSpace(itemID) == "" {
		return store.PoolItem{}, apperr.Invalidf("missing item id")
	}
	if err := s.requireProject(projectID); err != nil {
		return store.PoolItem{}, err
	}
	ts := nowMS()
	item, err := s.db.SetPoolItemSelected(projectID, itemID, selected)
	if err != nil {
		return store.PoolItem{}, err
	}
	if item == nil {
		return store.PoolItem{}, apperr.NotFoundf("pool item not found")
	}
	s.event(projectID, ts, "pool_item_selected", map[string]any{"item_id": itemID, "selected": selected})
	return *item, nil
}

// ListPoolItems returns the project's pool, newest first.
func (s *Service) ListPoolItems(_ context.Context, projectID string) ([]store.PoolItem, error) {
	if err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	return s.db.ListPoolItems(projectID, 0)
}
