package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateProject inserts a new project row.
func (db *DB) CreateProject(title string, nowMS int64) (Project, error) {
	p := Project{ID: uuid.NewString(), Title: title, CreatedAtMS: nowMS}
	_, err := db.conn.Exec(
		`INSERT INTO projects (id, title, created_at_ms) VALUES (?, ?, ?)`,
		p.ID, p.Title, p.CreatedAtMS,
	)
	if err != nil {
		return Project{}, fmt.Errorf("store: create project: %w", err)
	}
	return p, nil
}

// GetProject returns the project with the given id, or nil when absent.
func (db *DB) GetProject(id string) (*Project, error) {
	var p Project
	err := db.conn.QueryRow(
		`SELECT id, title, created_at_ms FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.CreatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return &p, nil
}

// ProjectExists reports whether a project row exists.
func (db *DB) ProjectExists(id string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM projects WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: project exists: %w", err)
	}
	return true, nil
}

// ListProjects returns the most recently created projects, newest first.
func (db *DB) ListProjects(limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(
		`SELECT id, title, created_at_ms FROM projects ORDER BY created_at_ms DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Title, &p.CreatedAtMS); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
