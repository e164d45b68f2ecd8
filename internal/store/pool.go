package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PoolItemInput carries the caller-controlled fields of a pool upsert.
type PoolItemInput struct {
	Kind      string
	Title     *string
	SourceURL *string
	License   *string
	DedupKey  string
	DataJSON  *string
	Selected  bool
}

const poolItemCols = `id, project_id, kind, title, source_url, license, dedup_key, data_json, selected, created_at_ms`

// UpsertPoolItem inserts or updates the row keyed by (project, dedup key)
// and returns the resulting row. On conflict every mutable field is
// overwritten while id and creation time are preserved. The read-back runs
// in the same transaction as the upsert, so concurrent submissions of one
// key cannot interleave between the two statements.
func (db *DB) UpsertPoolItem(projectID string, in PoolItemInput, nowMS int64) (PoolItem, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return PoolItem{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	selected := 0
	if in.Selected {
		selected = 1
	}
	_, err = tx.Exec(
		`INSERT INTO pool_items (`+poolItemCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, dedup_key) DO UPDATE SET
			kind       = excluded.kind,
			title      = excluded.title,
			source_url = excluded.source_url,
			license    = excluded.license,
			data_json  = excluded.data_json,
			selected   = excluded.selected`,
		uuid.NewString(), projectID, in.Kind, in.Title, in.SourceURL, in.License,
		in.DedupKey, in.DataJSON, selected, nowMS,
	)
	if err != nil {
		return PoolItem{}, fmt.Errorf("store: upsert pool item: %w", err)
	}

	item, err := scanPoolItem(tx.QueryRow(
		`SELECT `+poolItemCols+` FROM pool_items WHERE project_id = ? AND dedup_key = ? LIMIT 1`,
		projectID, in.DedupKey,
	))
	if err != nil {
		return PoolItem{}, fmt.Errorf("store: read back pool item: %w", err)
	}
	return item, tx.Commit()
}

// SetPoolItemSelected toggles the selected flag and returns the updated
// row, or nil when the item does not exist.
func (db *DB) SetPoolItemSelected(projectID, itemID string, selected bool) (*PoolItem, error) {
	val := 0
	if selected {
		val = 1
	}
	if _, err := db.conn.Exec(
		`UPDATE pool_items SET selected = ? WHERE project_id = ? AND id = ?`,
		val, projectID, itemID,
	); err != nil {
		return nil, fmt.Errorf("store: set pool item selected: %w", err)
	}

	item, err := scanPoolItem(db.conn.QueryRow(
		`SELECT `+poolItemCols+` FROM pool_items WHERE project_id = ? AND id = ? LIMIT 1`,
		projectID, itemID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read pool item: %w", err)
	}
	return &item, nil
}

// ListPoolItems returns a project's pool items, newest first.
func (db *DB) ListPoolItems(projectID string, limit int) ([]PoolItem, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.conn.Query(
		`SELECT `+poolItemCols+` FROM pool_items WHERE project_id = ? ORDER BY created_at_ms DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list pool items: %w", err)
	}
	defer rows.Close()
	return scanPoolItems(rows)
}

// AllPoolItems returns every pool item in creation order, for manifests.
func (db *DB) AllPoolItems(projectID string) ([]PoolItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+poolItemCols+` FROM pool_items WHERE project_id = ? ORDER BY created_at_ms ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: all pool items: %w", err)
	}
	defer rows.Close()
	return scanPoolItems(rows)
}

// SelectedPoolItems returns the currently selected items in creation order.
func (db *DB) SelectedPoolItems(projectID string) ([]PoolItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+poolItemCols+` FROM pool_items WHERE project_id = ? AND selected = 1 ORDER BY created_at_ms ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: selected pool items: %w", err)
	}
	defer rows.Close()
	return scanPoolItems(rows)
}

// SelectedKindCounts groups the selected items by kind, keys sorted
// ascending.
func (db *DB) SelectedKindCounts(projectID string) (map[string]int64, []string, error) {
	rows, err := db.conn.Query(
		`SELECT kind, COUNT(*) FROM pool_items WHERE project_id = ? AND selected = 1 GROUP BY kind ORDER BY kind ASC`,
		projectID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("store: selected kind counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	var order []string
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, nil, err
		}
		counts[kind] = n
		order = append(order, kind)
	}
	return counts, order, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoolItem(row rowScanner) (PoolItem, error) {
	var it PoolItem
	var selected int64
	err := row.Scan(&it.ID, &it.ProjectID, &it.Kind, &it.Title, &it.SourceURL,
		&it.License, &it.DedupKey, &it.DataJSON, &selected, &it.CreatedAtMS)
	if err != nil {
		return PoolItem{}, err
	}
	it.Selected = selected != 0
	return it, nil
}

func scanPoolItems(rows *sql.Rows) ([]PoolItem, error) {
	out := []PoolItem{}
	for rows.Next() {
		it, err := scanPoolItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
