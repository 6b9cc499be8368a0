package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"aniview/services/account"
	"aniview/services/catalog"
	"aniview/services/session"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeFailure maps service errors onto HTTP responses: account service
// rejections keep their status and message, transport failures surface as
// 502, missing sessions as 401, missing catalog entries as 404.
func writeFailure(w http.ResponseWriter, err error) {
	var apiErr *account.APIError
	switch {
	case errors.As(err, &apiErr):
		writeError(w, apiErr.Status, apiErr.Message)
	case account.IsUnreachable(err):
		writeError(w, http.StatusBadGateway, "network error, please check your connection")
	case errors.Is(err, session.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "anime not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
