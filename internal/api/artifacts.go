package api

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 2 << 30 // 2 GB, videos included

// ListArtifacts handles GET /projects/{id}/artifacts.
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.svc.ListArtifacts(r.Context(), projectID(r))
	if err != nil {
		writeError(w, "list artifacts", err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// CreateTextArtifact handles POST /projects/{id}/artifacts/text.
func (h *Handler) CreateTextArtifact(w http.ResponseWriter, r *http.Request) {
	var req TextArtifactRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	art, err := h.svc.CreateTextArtifact(r.Context(), projectID(r), req.Kind, req.OutPath, req.Content)
	if err != nil {
		writeError(w, "create text artifact", err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// UploadArtifact handles POST /projects/{id}/artifacts/upload. The file
// arrives as the multipart field "file".
func (h *Handler) UploadArtifact(w http.ResponseWriter, r *http.Request) {
	part, err := nextFilePart(r, "file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing multipart field 'file'"))
		return
	}
	defer part.Close() //nolint:errcheck

	res, err := h.svc.UploadArtifact(r.Context(), projectID(r), part.FileName(), part.Header.Get("Content-Type"), part)
	if err != nil {
		writeError(w, "upload artifact", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DownloadArtifactRaw handles GET /projects/{id}/artifacts/{artifact_id}/raw.
//
//	@Summary	Stream an artifact's backing file
//	@Tags		artifacts
//	@Produce	octet-stream
//	@Failure	400	{object}	errResponse	"URL-kind artifacts have no file"
//	@Failure	404	{object}	errResponse
//	@Router		/projects/{id}/artifacts/{artifact_id}/raw [get]
func (h *Handler) DownloadArtifactRaw(w http.ResponseWriter, r *http.Request) {
	rel, ctype, err := h.svc.ArtifactFile(r.Context(), projectID(r), chi.URLParam(r, "artifact_id"))
	if err != nil {
		writeError(w, "download artifact", err)
		return
	}
	w.Header().Set("Content-Type", ctype)
	if _, err := h.fs.CopyTo(w, rel); err != nil {
		slog.Error("stream artifact failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// nextFilePart returns the first multipart file part, preferring the
// named field but accepting unnamed file fields too.
func nextFilePart(r *http.Request, field string) (*multipart.Part, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		name := part.FormName()
		if name != "" && name != field {
			continue
		}
		if part.FileName() == "" && name != field {
			continue
		}
		return part, nil
	}
}
