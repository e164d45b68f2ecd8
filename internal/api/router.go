// Package api implements the VidUnpack REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/vidservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced; the health
// endpoint stays unauthenticated either way.
// sseHandler, if non-nil, is mounted at GET /api/events inside the auth group.
func NewRouter(svc *vidservice.Service, fs *storage.FS, dbPath string, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, fs, dbPath)

	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Get("/profile", h.GetProfile)
		r.Post("/profile/reset", h.ResetProfile)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.CreateProject)
			r.Get("/", h.ListProjects)
			r.Post("/import/manifest", h.ImportManifest)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Get("/events", h.ListEvents)

				r.Get("/consent", h.GetConsent)
				r.Post("/consent", h.UpsertConsent)
				r.Get("/settings", h.GetSettings)
				r.Post("/settings", h.UpdateSettings)

				r.Post("/chats", h.CreateChat)
				r.Get("/chats", h.ListChats)
				r.Get("/chats/{chat_id}/messages", h.ListChatMessages)
				r.Post("/chats/{chat_id}/messages", h.CreateChatMessage)

				r.Get("/artifacts", h.ListArtifacts)
				r.Post("/artifacts/text", h.CreateTextArtifact)
				r.Post("/artifacts/upload", h.UploadArtifact)
				r.Get("/artifacts/{artifact_id}/raw", h.DownloadArtifactRaw)

				r.Post("/pool/items", h.AddPoolItem)
				r.Get("/pool/items", h.ListPoolItems)
				r.Post("/pool/items/{item_id}/selected", h.SetPoolItemSelected)

				r.Post("/inputs/url", h.AddInputURL)
				r.Post("/media/local", h.ImportLocalVideo)
				r.Post("/media/remote", h.ImportRemoteMedia)
				r.Post("/pipeline/ffmpeg", h.RunPipeline)

				r.Post("/exports/report", h.GenerateReport)
				r.Post("/exports/zip/estimate", h.EstimateExportZip)
				r.Post("/exports/zip", h.ExportZip)
				r.Get("/exports/download/{file}", h.DownloadExportFile)
			})
		})

		// SSE endpoint (protected by same auth middleware).
		if sseHandler != nil {
			r.Get("/api/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
