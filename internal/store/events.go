package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// AppendEvent records an audit event for a project. data is marshalled to
// JSON; a nil data stores NULL.
func (db *DB) AppendEvent(projectID string, tsMS int64, level, message string, data any) error {
	var dataJSON *string
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("store: marshal event data: %w", err)
		}
		s := string(raw)
		dataJSON = &s
	}
	_, err := db.conn.Exec(
		`INSERT INTO events (project_id, ts_ms, level, message, data_json) VALUES (?, ?, ?, ?, ?)`,
		projectID, tsMS, level, message, dataJSON,
	)
	if err != nil {
		return fmt.Errorf("store: append event: %w", err)
	}
	return nil
}

// LogEvent appends an audit event and logs (instead of failing) when the
// write itself fails. Mutating operations use it so audit plumbing never
// masks the primary result.
func (db *DB) LogEvent(projectID string, tsMS int64, level, message string, data any) {
	if err := db.AppendEvent(projectID, tsMS, level, message, data); err != nil {
		slog.Warn("event append failed",
			slog.String("project_id", projectID),
			slog.String("message", message),
			slog.String("error", err.Error()))
	}
}

// ListEvents returns a project's events, newest first.
func (db *DB) ListEvents(projectID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, ts_ms, level, message, data_json FROM events
		 WHERE project_id = ? ORDER BY ts_ms DESC, id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.TsMS, &e.Level, &e.Message, &e.DataJSON); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
