package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
	"github.com/starford/vidunpack/internal/vidservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *vidservice.Service
	fs     *storage.FS
	dbPath string
}

// NewHandler creates a new Handler. dbPath only feeds the health report.
func NewHandler(svc *vidservice.Service, fs *storage.FS, dbPath string) *Handler {
	return &Handler{svc: svc, fs: fs, dbPath: dbPath}
}

func projectID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// Health handles GET /health.
//
//	@Summary	Service and tool availability
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	tools := h.svc.Tools()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"service":  "vidunpack",
		"data_dir": h.fs.Root(),
		"ffmpeg":   tools.FFmpegOK,
		"ffprobe":  tools.FFprobeOK,
		"ytdlp":    tools.YtDlpOK,
		"db_path":  h.dbPath,
	})
}

// GetProfile handles GET /profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Profile(r.Context())
	if err != nil {
		writeError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ResetProfile handles POST /profile/reset.
func (h *Handler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ResetProfile(r.Context())
	if err != nil {
		writeError(w, "reset profile", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// CreateProject handles POST /projects.
//
//	@Summary	Create a project with its working directories
//	@Tags		projects
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	store.Project
//	@Router		/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	p, err := h.svc.CreateProject(r.Context(), title)
	if err != nil {
		writeError(w, "create project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject handles GET /projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "get project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetConsent handles GET /projects/{id}/consent.
func (h *Handler) GetConsent(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Consent(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "get consent", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpsertConsent handles POST /projects/{id}/consent.
//
//	@Summary	Merge consent fields; revoking consent clears auto_confirm
//	@Tags		consent
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	store.Consent
//	@Failure	404	{object}	errResponse
//	@Router		/projects/{id}/consent [post]
func (h *Handler) UpsertConsent(w http.ResponseWriter, r *http.Request) {
	var req ConsentRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	c, err := h.svc.SetConsent(r.Context(), projectID(r), req.Consented, req.AutoConfirm)
	if err != nil {
		writeError(w, "upsert consent", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetSettings handles GET /projects/{id}/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings handles POST /projects/{id}/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), projectID(r), req.ThinkEnabled)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListEvents handles GET /projects/{id}/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.svc.Events(r.Context(), projectID(r), limit)
	if err != nil {
		writeError(w, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateChat handles POST /projects/{id}/chats.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	chat, err := h.svc.CreateChat(r.Context(), projectID(r), title)
	if err != nil {
		writeError(w, "create chat", err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// ListChats handles GET /projects/{id}/chats.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ListChats(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "list chats", err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// chatMessage is the wire form of a message: the data payload goes out
// as JSON, not as the stored string.
type chatMessage struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	ChatID      string          `json:"chat_id"`
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	Data        json.RawMessage `json:"data"`
	CreatedAtMS int64           `json:"created_at_ms"`
}

func toChatMessage(m store.ChatMessage) chatMessage {
	out := chatMessage{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		ChatID:      m.ChatID,
		Role:        m.Role,
		Content:     m.Content,
		CreatedAtMS: m.CreatedAtMS,
	}
	if m.DataJSON != nil && json.Valid([]byte(*m.DataJSON)) {
		out.Data = json.RawMessage(*m.DataJSON)
	}
	return out
}

// CreateChatMessage handles POST /projects/{id}/chats/{chat_id}/messages.
func (h *Handler) CreateChatMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateChatMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	var dataJSON *string
	if len(req.Data) > 0 {
		v := string(req.Data)
		dataJSON = &v
	}
	m, err := h.svc.CreateChatMessage(r.Context(), projectID(r), chi.URLParam(r, "chat_id"), req.Role, req.Content, dataJSON)
	if err != nil {
		writeError(w, "create chat message", err)
		return
	}
	writeJSON(w, http.StatusOK, toChatMessage(m))
}

// ListChatMessages handles GET /projects/{id}/chats/{chat_id}/messages.
func (h *Handler) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ListChatMessages(r.Context(), projectID(r), chi.URLParam(r, "chat_id"))
	if err != nil {
		writeError(w, "list chat messages", err)
		return
	}
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toChatMessage(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// AddPoolItem handles POST /projects/{id}/pool/items.
//
//	@Summary	Upsert a pool item keyed by its dedup key
//	@Tags		pool
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	store.PoolItem
//	@Failure	400	{object}	errResponse
//	@Router		/projects/{id}/pool/items [post]
func (h *Handler) AddPoolItem(w http.ResponseWriter, r *http.Request) {
	var req PoolItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	item, err := h.svc.AddPoolItem(r.Context(), projectID(r), vidservice.PoolItemRequest{
		Kind:      req.Kind,
		Title:     req.Title,
		SourceURL: req.SourceURL,
		URL:       req.URL,
		License:   req.License,
		DedupKey:  req.DedupKey,
		Selected:  req.Selected,
		Data:      req.Data,
	})
	if err != nil {
		writeError(w, "add pool item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ListPoolItems handles GET /projects/{id}/pool/items.
func (h *Handler) ListPoolItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPoolItems(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "list pool items", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// SetPoolItemSelected handles POST /projects/{id}/pool/items/{item_id}/selected.
func (h *Handler) SetPoolItemSelected(w http.ResponseWriter, r *http.Request) {
	var req SelectPoolItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	item, err := h.svc.SetPoolItemSelected(r.Context(), projectID(r), chi.URLParam(r, "item_id"), req.Selected)
	if err != nil {
		writeError(w, "select pool item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// decodeBody decodes a JSON request body, writing the 400 itself. An
// empty body decodes as the zero request.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
	return err
}
