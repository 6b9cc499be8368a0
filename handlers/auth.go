package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"aniview/models"
	"aniview/services/session"
)

type sessionAuth interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, username, email, password string) error
	Logout()
	Resync(ctx context.Context) error
	Current() (models.UserSnapshot, bool)
	State() session.State
	IsLoading() bool
	LastSyncedAt() time.Time
}

var _ sessionAuth = (*session.Service)(nil)

type passwordResetClient interface {
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

// AuthHandler exposes session lifecycle operations to the view layer.
type AuthHandler struct {
	sessions sessionAuth
	resets   passwordResetClient
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(sessions sessionAuth, resets passwordResetClient) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		resets:   resets,
	}
}

// Register attaches the auth routes to the router.
func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/auth/register", h.HandleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", h.HandleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/me", h.HandleMe).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/resync", h.HandleResync).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/request-reset-password", h.HandleRequestReset).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset-password", h.HandleResetPassword).Methods(http.MethodPost)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	Authenticated bool                 `json:"authenticated"`
	State         string               `json:"state"`
	Loading       bool                 `json:"loading"`
	LastSyncedAt  *time.Time           `json:"lastSyncedAt,omitempty"`
	User          *models.UserSnapshot `json:"user,omitempty"`
}

// HandleRegister creates an account and starts a session.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	if err := h.sessions.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeMe(w, http.StatusCreated)
}

// HandleLogin starts a session with existing credentials.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if err := h.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeMe(w, http.StatusOK)
}

// HandleLogout tears down the session; local-only, always succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout()
	h.writeMe(w, http.StatusOK)
}

// HandleMe reports the current session state and snapshot.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	h.writeMe(w, http.StatusOK)
}

// HandleResync pulls the remote record and overwrites local state. Failure
// is surfaced because the sync was explicitly requested.
func (h *AuthHandler) HandleResync(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Resync(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeMe(w, http.StatusOK)
}

type requestResetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleRequestReset forwards a password reset request to the account
// service.
func (h *AuthHandler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	msg, err := h.resets.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, errorResponse{Message: msg})
}

// HandleResetPassword completes a reset with the mailed token.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "token and new password are required")
		return
	}

	msg, err := h.resets.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, errorResponse{Message: msg})
}

func (h *AuthHandler) writeMe(w http.ResponseWriter, status int) {
	resp := meResponse{
		State:   h.sessions.State().String(),
		Loading: h.sessions.IsLoading(),
	}
	if snap, ok := h.sessions.Current(); ok {
		resp.Authenticated = true
		resp.User = &snap
	}
	if ts := h.sessions.LastSyncedAt(); !ts.IsZero() {
		resp.LastSyncedAt = &ts
	}
	writeJSON(w, status, resp)
}
