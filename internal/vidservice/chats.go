package vidservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/vidunpack/internal/apperr"
	"github.com/starford/vidunpack/internal/store"
)

func validChatRole(role string) bool {
	switch role {
	case "user", "assistant", "system", "tool":
		return true
	}
	return false
}

// CreateChat opens a chat thread. A blank title becomes "Chat {ts}".
func (s *Service) CreateChat(_ context.Context, projectID, title string) (store.Chat, error) {
	if err := s.requireProject(projectID); err != nil {
		return store.Chat{}, err
	}
	ts := nowMS()
	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("Chat %d", ts)
	}
	chat, err := s.db.CreateChat(projectID, title, ts)
	if err != nil {
		return store.Chat{}, err
	}
	s.event(projectID, ts, "chat_created", map[string]any{"chat_id": chat.ID, "title": chat.Title})
	return chat, nil
}

// ListChats returns the project's chat threads, newest first.
func (s *Service) ListChats(_ context.Context, projectID string) ([]store.Chat, error) {
	if err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	return s.db.ListChats(projectID, 0)
}

// CreateChatMessage appends one message to a chat. Either content or a
// data payload must be present.
func (s *Service) CreateChatMessage(_ context.Context, projectID, chatID, role, content string, dataJSON *string) (store.ChatMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return store.ChatMessage{}, apperr.Invalidf("missing chat id")
	}
	role = strings.TrimSpace(role)
	if !validChatRole(role) {
		return store.ChatMessage{}, apperr.Invalidf("invalid role")
	}
	content = strings.TrimRight(content, " \t\r\n")
	if strings.TrimSpace(content) == "" && dataJSON == nil {
		return store.ChatMessage{}, apperr.Invalidf("missing content")
	}
	if err := s.requireProject(projectID); err != nil {
		return store.ChatMessage{}, err
	}
	ok, err := s.db.ChatExists(projectID, chatID)
	if err != nil {
		return store.ChatMessage{}, err
	}
	if !ok {
		return store.ChatMessage{}, apperr.NotFoundf("chat not found")
	}
	return s.db.CreateChatMessage(projectID, chatID, role, content, dataJSON, nowMS())
}

// ListChatMessages returns the chat's messages, oldest first.
func (s *Service) ListChatMessages(_ context.Context, projectID, chatID string) ([]store.ChatMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, apperr.Invalidf("missing chat id")
	}
	if err := s.requireProject(projectID); err != nil {
		return nil, err
	}
	ok, err := s.db.ChatExists(projectID, chatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFoundf("chat not found")
	}
	return s.db.ListChatMessages(projectID, chatID, 0)
}
