package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EnsureArtifact looks up the (project, kind, path) triple and returns the
// existing row unchanged — original id and timestamp included — or inserts
// a new row stamped with nowMS. Calling it twice with the same triple is
// side-effect-free on the second call; this is the idempotence primitive
// every derivation step relies on.
func (db *DB) EnsureArtifact(projectID, kind, path string, nowMS int64) (Artifact, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Artifact{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	a := Artifact{ProjectID: projectID, Kind: kind, Path: path}
	err = tx.QueryRow(
		`SELECT id, created_at_ms FROM artifacts WHERE project_id = ? AND kind = ? AND path = ? LIMIT 1`,
		projectID, kind, path,
	).Scan(&a.ID, &a.CreatedAtMS)
	switch {
	case err == nil:
		return a, tx.Commit()
	case errors.Is(err, sql.ErrNoRows):
		// fall through to insert
	default:
		return Artifact{}, fmt.Errorf("store: ensure artifact lookup: %w", err)
	}

	a.ID = uuid.NewString()
	a.CreatedAtMS = nowMS
	if _, err := tx.Exec(
		`INSERT INTO artifacts (id, project_id, kind, path, created_at_ms) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Kind, a.Path, a.CreatedAtMS,
	); err != nil {
		return Artifact{}, fmt.Errorf("store: ensure artifact insert: %w", err)
	}
	return a, tx.Commit()
}

// InsertArtifact inserts an artifact row unconditionally. Used for
// URL-kind artifacts where repeated submissions should not merge.
func (db *DB) InsertArtifact(projectID, kind, path string, nowMS int64) (Artifact, error) {
	a := Artifact{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Kind:        kind,
		Path:        path,
		CreatedAtMS: nowMS,
	}
	_, err := db.conn.Exec(
		`INSERT INTO artifacts (id, project_id, kind, path, created_at_ms) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Kind, a.Path, a.CreatedAtMS,
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("store: insert artifact: %w", err)
	}
	return a, nil
}

// GetArtifact returns the artifact with the given id within a project, or
// nil when absent.
func (db *DB) GetArtifact(projectID, artifactID string) (*Artifact, error) {
	var a Artifact
	err := db.conn.QueryRow(
		`SELECT id, project_id, kind, path, created_at_ms FROM artifacts WHERE id = ? AND project_id = ? LIMIT 1`,
		artifactID, projectID,
	).Scan(&a.ID, &a.ProjectID, &a.Kind, &a.Path, &a.CreatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get artifact: %w", err)
	}
	return &a, nil
}

// LatestArtifact returns the most recently created artifact of a kind
// within a project, or nil when the project has none. "The current one"
// for a kind is defined as the newest row.
func (db *DB) LatestArtifact(projectID, kind string) (*Artifact, error) {
	var a Artifact
	err := db.conn.QueryRow(
		`SELECT id, project_id, kind, path, created_at_ms FROM artifacts
		 WHERE project_id = ? AND kind = ? ORDER BY created_at_ms DESC LIMIT 1`,
		projectID, kind,
	).Scan(&a.ID, &a.ProjectID, &a.Kind, &a.Path, &a.CreatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest artifact: %w", err)
	}
	return &a, nil
}

// ListArtifacts returns a project's artifacts, newest first.
func (db *DB) ListArtifacts(projectID string, limit int) ([]Artifact, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, kind, path, created_at_ms FROM artifacts
		 WHERE project_id = ? ORDER BY created_at_ms DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list artifacts: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// AllArtifacts returns every artifact of a project in creation order, for
// manifest generation.
func (db *DB) AllArtifacts(projectID string) ([]Artifact, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, kind, path, created_at_ms FROM artifacts
		 WHERE project_id = ? ORDER BY created_at_ms ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: all artifacts: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// ArtifactsByKind returns artifacts of a kind in creation order.
func (db *DB) ArtifactsByKind(projectID, kind string) ([]Artifact, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, kind, path, created_at_ms FROM artifacts
		 WHERE project_id = ? AND kind = ? ORDER BY created_at_ms ASC`,
		projectID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("store: artifacts by kind: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func scanArtifacts(rows *sql.Rows) ([]Artifact, error) {
	out := []Artifact{}
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Kind, &a.Path, &a.CreatedAtMS); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
