package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/envios/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps a backend failure onto a response status.
func writeUpstreamError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnauthenticated), api.StatusCode(err) == http.StatusUnauthorized:
		writeError(w, http.StatusUnauthorized, "not logged in")
	case errors.As(err, &apiErr):
		logger.Warn("backend rejected request", "status", apiErr.StatusCode, "error", apiErr.Message)
		writeError(w, http.StatusBadGateway, apiErr.Message)
	case api.IsRetryable(err):
		logger.Warn("backend unreachable", "error", err)
		writeError(w, http.StatusGatewayTimeout, "backend unreachable")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
