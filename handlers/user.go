package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"aniview/models"
	"aniview/services/session"
)

type sessionMutator interface {
	Current() (models.UserSnapshot, bool)
	SetAvatar(avatar string)
	SetPreferences(prefs models.Preferences)
	AddFavorite(id string)
	RemoveFavorite(id string)
	AddToWatchlist(id string)
	RemoveFromWatchlist(id string)
	AddToHistory(id string)
}

var _ sessionMutator = (*session.Service)(nil)

// UserHandler exposes the optimistic mutation operations. The synchronizer
// silently ignores unauthenticated mutations; at the HTTP surface the same
// condition is answered with 401 so the view layer can redirect.
type UserHandler struct {
	sessions sessionMutator
}

// NewUserHandler creates a user state handler.
func NewUserHandler(sessions sessionMutator) *UserHandler {
	return &UserHandler{sessions: sessions}
}

// Register attaches the user state routes to the router.
func (h *UserHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/user/avatar", h.HandleUpdateAvatar).Methods(http.MethodPut)
	r.HandleFunc("/api/user/preferences", h.HandleUpdatePreferences).Methods(http.MethodPut)
	r.HandleFunc("/api/user/favorites/{id}", h.HandleAddFavorite).Methods(http.MethodPost)
	r.HandleFunc("/api/user/favorites/{id}", h.HandleRemoveFavorite).Methods(http.MethodDelete)
	r.HandleFunc("/api/user/watchlist/{id}", h.HandleAddToWatchlist).Methods(http.MethodPost)
	r.HandleFunc("/api/user/watchlist/{id}", h.HandleRemoveFromWatchlist).Methods(http.MethodDelete)
	r.HandleFunc("/api/user/history/{id}", h.HandleAddToHistory).Methods(http.MethodPost)
}

type avatarRequest struct {
	Avatar string `json:"avatar"`
}

// HandleUpdateAvatar replaces the avatar. Data-URI payloads are sniffed and
// must contain an actual image; URLs and the empty string pass through.
func (h *UserHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(); !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req avatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.HasPrefix(req.Avatar, "data:") && !isImageDataURI(req.Avatar) {
		writeError(w, http.StatusBadRequest, "avatar must be an image")
		return
	}

	h.sessions.SetAvatar(req.Avatar)
	h.writeSnapshot(w)
}

type preferencesRequest struct {
	Theme         *string `json:"theme"`
	Language      *string `json:"language"`
	Notifications *bool   `json:"notifications"`
}

// HandleUpdatePreferences merges a partial preferences update onto the
// current record.
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.sessions.Current()
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs := snap.Preferences
	if req.Theme != nil {
		if *req.Theme != models.ThemeLight && *req.Theme != models.ThemeDark {
			writeError(w, http.StatusBadRequest, "theme must be light or dark")
			return
		}
		prefs.Theme = *req.Theme
	}
	if req.Language != nil && *req.Language != "" {
		prefs.Language = *req.Language
	}
	if req.Notifications != nil {
		prefs.Notifications = *req.Notifications
	}

	h.sessions.SetPreferences(prefs)
	h.writeSnapshot(w)
}

// HandleAddFavorite adds the anime id to the favorites set.
func (h *UserHandler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	h.listOp(w, r, h.sessions.AddFavorite)
}

// HandleRemoveFavorite removes the anime id from the favorites set.
func (h *UserHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.listOp(w, r, h.sessions.RemoveFavorite)
}

// HandleAddToWatchlist adds the anime id to the watchlist.
func (h *UserHandler) HandleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	h.listOp(w, r, h.sessions.AddToWatchlist)
}

// HandleRemoveFromWatchlist removes the anime id from the watchlist.
func (h *UserHandler) HandleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	h.listOp(w, r, h.sessions.RemoveFromWatchlist)
}

// HandleAddToHistory records a watched anime id.
func (h *UserHandler) HandleAddToHistory(w http.ResponseWriter, r *http.Request) {
	h.listOp(w, r, h.sessions.AddToHistory)
}

func (h *UserHandler) listOp(w http.ResponseWriter, r *http.Request, op func(string)) {
	if _, ok := h.sessions.Current(); !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	op(id)
	h.writeSnapshot(w)
}

func (h *UserHandler) writeSnapshot(w http.ResponseWriter) {
	snap, _ := h.sessions.Current()
	writeJSON(w, http.StatusOK, snap)
}

// isImageDataURI decodes a data URI and sniffs the bytes; the declared
// media type is not trusted.
func isImageDataURI(uri string) bool {
	_, rest, ok := strings.Cut(uri, ",")
	if !ok {
		return false
	}

	var data []byte
	if strings.Contains(strings.ToLower(uri[:len(uri)-len(rest)]), ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return false
		}
		data = decoded
	} else {
		data = []byte(rest)
	}

	return strings.HasPrefix(mimetype.Detect(data).String(), "image/")
}
