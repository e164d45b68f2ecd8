package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vidunpack/internal/export"
)

func exportFlags(req ExportZipRequest) export.Flags {
	return export.FlagsFromRequest(
		req.IncludeOriginalVideo,
		req.IncludeReport,
		req.IncludeManifest,
		req.IncludeClips,
		req.IncludeAudio,
		req.IncludeThumbnails,
	)
}

// GenerateReport handles POST /projects/{id}/exports/report.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GenerateReport(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "generate report", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EstimateExportZip handles POST /projects/{id}/exports/zip/estimate.
func (h *Handler) EstimateExportZip(w http.ResponseWriter, r *http.Request) {
	var req ExportZipRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	est, err := h.svc.EstimateExportZip(r.Context(), projectID(r), exportFlags(req))
	if err != nil {
		writeError(w, "estimate export", err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// ExportZip handles POST /projects/{id}/exports/zip.
//
//	@Summary	Materialize the export archive
//	@Tags		exports
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	vidservice.ExportZipResult
//	@Failure	404	{object}	errResponse
//	@Router		/projects/{id}/exports/zip [post]
func (h *Handler) ExportZip(w http.ResponseWriter, r *http.Request) {
	var req ExportZipRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	res, err := h.svc.ExportZip(r.Context(), projectID(r), exportFlags(req))
	if err != nil {
		writeError(w, "export zip", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DownloadExportFile handles GET /projects/{id}/exports/download/{file}.
func (h *Handler) DownloadExportFile(w http.ResponseWriter, r *http.Request) {
	rel, name, err := h.svc.ExportFile(r.Context(), projectID(r), chi.URLParam(r, "file"))
	if err != nil {
		writeError(w, "download export", err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := h.fs.CopyTo(w, rel); err != nil {
		slog.Error("stream export failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// ImportManifest handles POST /projects/import/manifest.
func (h *Handler) ImportManifest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var manifest json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&manifest); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.ImportManifest(r.Context(), manifest)
	if err != nil {
		writeError(w, "import manifest", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
