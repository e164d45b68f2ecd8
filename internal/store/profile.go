package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// LoadProfileRow returns the raw stored profile summary, or nil when no
// profile has been saved yet.
func (db *DB) LoadProfileRow() (*string, int64, error) {
	var summary string
	var updatedAt int64
	err := db.conn.QueryRow(`SELECT summary, updated_at_ms FROM profile WHERE id = 1`).
		Scan(&summary, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("store: load profile: %w", err)
	}
	return &summary, updatedAt, nil
}

// SaveProfileRow upserts the singleton profile row.
func (db *DB) SaveProfileRow(summary string, nowMS int64) error {
	_, err := db.conn.Exec(
		`INSERT INTO profile (id, summary, updated_at_ms) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET summary = excluded.summary, updated_at_ms = excluded.updated_at_ms`,
		summary, nowMS,
	)
	if err != nil {
		return fmt.Errorf("store: save profile: %w", err)
	}
	return nil
}

// ResetProfileRow removes the stored profile, if any.
func (db *DB) ResetProfileRow() error {
	if _, err := db.conn.Exec(`DELETE FROM profile WHERE id = 1`); err != nil {
		return fmt.Errorf("store: reset profile: %w", err)
	}
	return nil
}
