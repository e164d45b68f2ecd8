package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/vidunpack/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{OK: false, Error: msg}
}

// writeError maps service errors onto the wire contract: bad input 400,
// missing things 404, unmet preconditions 412, everything else 500 with
// the detail kept out of the response.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.Message(err)))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(apperr.Message(err)))
	case errors.Is(err, apperr.ErrPrecondition):
		writeJSON(w, http.StatusPreconditionFailed, errorBody(apperr.Message(err)))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
