package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetSettings returns project settings, defaulting think_enabled to true
// when never set.
func (db *DB) GetSettings(projectID string) (Settings, error) {
	s := Settings{ProjectID: projectID, ThinkEnabled: true}
	var think int64
	err := db.conn.QueryRow(
		`SELECT think_enabled, updated_at_ms FROM project_settings WHERE project_id = ?`,
		projectID,
	).Scan(&think, &s.UpdatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("store: get settings: %w", err)
	}
	s.ThinkEnabled = think != 0
	return s, nil
}

// UpdateSettings upserts project settings.
func (db *DB) UpdateSettings(projectID string, thinkEnabled bool, nowMS int64) (Settings, error) {
	val := 0
	if thinkEnabled {
		val = 1
	}
	_, err := db.conn.Exec(
		`INSERT INTO project_settings (project_id, think_enabled, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
			think_enabled = excluded.think_enabled,
			updated_at_ms = excluded.updated_at_ms`,
		projectID, val, nowMS,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("store: update settings: %w", err)
	}
	return Settings{ProjectID: projectID, ThinkEnabled: thinkEnabled, UpdatedAtMS: nowMS}, nil
}
