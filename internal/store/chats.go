package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateChat inserts a chat thread.
func (db *DB) CreateChat(projectID, title string, nowMS int64) (Chat, error) {
	c := Chat{ID: uuid.NewString(), ProjectID: projectID, Title: title, CreatedAtMS: nowMS}
	_, err := db.conn.Exec(
		`INSERT INTO chats (id, project_id, title, created_at_ms) VALUES (?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Title, c.CreatedAtMS,
	)
	if err != nil {
		return Chat{}, fmt.Errorf("store: create chat: %w", err)
	}
	return c, nil
}

// ChatExists reports whether a chat exists within a project.
func (db *DB) ChatExists(projectID, chatID string) (bool, error) {
	var one int
	err := db.conn.QueryRow(
		`SELECT 1 FROM chats WHERE id = ? AND project_id = ?`, chatID, projectID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: chat exists: %w", err)
	}
	return true, nil
}

// ListChats returns a project's chats, newest first.
func (db *DB) ListChats(projectID string, limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, title, created_at_ms FROM chats
		 WHERE project_id = ? ORDER BY created_at_ms DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	defer rows.Close()

	out := []Chat{}
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &c.CreatedAtMS); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateChatMessage appends a message to a chat.
func (db *DB) CreateChatMessage(projectID, chatID, role, content string, dataJSON *string, nowMS int64) (ChatMessage, error) {
	m := ChatMessage{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		ChatID:      chatID,
		Role:        role,
		Content:     content,
		DataJSON:    dataJSON,
		CreatedAtMS: nowMS,
	}
	_, err := db.conn.Exec(
		`INSERT INTO chat_messages (id, project_id, chat_id, role, content, data_json, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.ChatID, m.Role, m.Content, m.DataJSON, m.CreatedAtMS,
	)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("store: create chat message: %w", err)
	}
	return m, nil
}

// ListChatMessages returns a chat's messages in creation order.
func (db *DB) ListChatMessages(projectID, chatID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, chat_id, role, content, data_json, created_at_ms FROM chat_messages
		 WHERE project_id = ? AND chat_id = ? ORDER BY created_at_ms ASC LIMIT ?`,
		projectID, chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list chat messages: %w", err)
	}
	defer rows.Close()

	out := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.ChatID, &m.Role, &m.Content, &m.DataJSON, &m.CreatedAtMS); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
