package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetConsent returns the consent state for a project, defaulting to
// (false, false) when never set.
func (db *DB) GetConsent(projectID string) (Consent, error) {
	c := Consent{ProjectID: projectID}
	var consented, auto int64
	err := db.conn.QueryRow(
		`SELECT consented, auto_confirm, updated_at_ms FROM consents WHERE project_id = ?`,
		projectID,
	).Scan(&consented, &auto, &c.UpdatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return Consent{}, fmt.Errorf("store: get consent: %w", err)
	}
	c.Consented = consented != 0
	c.AutoConfirm = auto != 0
	return c, nil
}

// UpsertConsent merges the supplied fields over the existing state. Nil
// fields keep their current value. auto_confirm is force-cleared whenever
// the resulting consented is false, regardless of what the caller
// requested. The read-merge-write runs in one transaction.
func (db *DB) UpsertConsent(projectID string, consented, autoConfirm *bool, nowMS int64) (Consent, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Consent{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var curConsented, curAuto int64
	err = tx.QueryRow(
		`SELECT consented, auto_confirm FROM consents WHERE project_id = ?`, projectID,
	).Scan(&curConsented, &curAuto)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Consent{}, fmt.Errorf("store: read consent: %w", err)
	}

	c := Consent{
		ProjectID:   projectID,
		Consented:   curConsented != 0,
		AutoConfirm: curAuto != 0,
		UpdatedAtMS: nowMS,
	}
	if consented != nil {
		c.Consented = *consented
	}
	if autoConfirm != nil {
		c.AutoConfirm = *autoConfirm
	}
	if !c.Consented {
		c.AutoConfirm = false
	}

	consentedVal, autoVal := 0, 0
	if c.Consented {
		consentedVal = 1
	}
	if c.AutoConfirm {
		autoVal = 1
	}
	if _, err := tx.Exec(
		`INSERT INTO consents (project_id, consented, auto_confirm, updated_at_ms) VALUES (?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
			consented = excluded.consented,
			auto_confirm = excluded.auto_confirm,
			updated_at_ms = excluded.updated_at_ms`,
		projectID, consentedVal, autoVal, nowMS,
	); err != nil {
		return Consent{}, fmt.Errorf("store: upsert consent: %w", err)
	}
	return c, tx.Commit()
}
