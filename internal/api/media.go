package api

import (
	"net/http"
)

// AddInputURL handles POST /projects/{id}/inputs/url.
func (h *Handler) AddInputURL(w http.ResponseWriter, r *http.Request) {
	var req InputURLRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	art, err := h.svc.AddInputURL(r.Context(), projectID(r), req.URL)
	if err != nil {
		writeError(w, "add input url", err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// ImportLocalVideo handles POST /projects/{id}/media/local. The video
// arrives as the first multipart file field.
func (h *Handler) ImportLocalVideo(w http.ResponseWriter, r *http.Request) {
	part, err := nextFilePart(r, "file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing multipart field 'file'"))
		return
	}
	defer part.Close() //nolint:errcheck

	name := part.FileName()
	if name == "" {
		name = "video"
	}
	res, err := h.svc.ImportLocalVideo(r.Context(), projectID(r), name, part)
	if err != nil {
		writeError(w, "import local video", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportRemoteMedia handles POST /projects/{id}/media/remote.
//
//	@Summary	Resolve a URL via yt-dlp, optionally downloading the video
//	@Tags		media
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	RemoteImportResult
//	@Failure	412	{object}	errResponse	"Tool missing or consent not granted"
//	@Router		/projects/{id}/media/remote [post]
func (h *Handler) ImportRemoteMedia(w http.ResponseWriter, r *http.Request) {
	var req RemoteImportRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	res, err := h.svc.ImportRemoteMedia(r.Context(), projectID(r), req.URL, req.Download, req.CookiesFromBrowser)
	if err != nil {
		writeError(w, "import remote media", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RunPipeline handles POST /projects/{id}/pipeline/ffmpeg.
//
//	@Summary	Derive metadata, clips, audio, and thumbnails from an input video
//	@Tags		media
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	PipelineResult
//	@Failure	412	{object}	errResponse	"ffmpeg/ffprobe missing or input unusable"
//	@Router		/projects/{id}/pipeline/ffmpeg [post]
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelineRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	res, err := h.svc.RunPipeline(r.Context(), projectID(r), req.InputArtifactID)
	if err != nil {
		writeError(w, "run pipeline", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
