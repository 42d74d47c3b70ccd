package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/model"
	"github.com/dukerupert/envios/internal/session"
)

type SessionHandler struct {
	auth   *auth.Service
	logger *slog.Logger
}

func NewSessionHandler(svc *auth.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{auth: svc, logger: logger}
}

// sessionView is the session as exposed over HTTP. The token stays local.
type sessionView struct {
	UserID     model.Int      `json:"id"`
	Email      string         `json:"email"`
	Role       model.Role     `json:"id_rol"`
	Branches   []model.Branch `json:"sucursales"`
	BranchName string         `json:"sucursalNombre"`
	Dashboard  auth.Dashboard `json:"dashboard"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

func newSessionView(s model.Session) sessionView {
	v := sessionView{
		UserID:     s.UserID,
		Email:      s.Email,
		Role:       s.Role,
		Branches:   s.Branches,
		BranchName: s.BranchName,
	}
	v.Dashboard, _ = auth.DashboardOf(s.Role)
	if exp, ok := session.TokenExpiry(s.Token); ok {
		v.ExpiresAt = &exp
	}
	return v
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, _, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, newSessionView(sess))
	case errors.Is(err, auth.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "email and password are required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Credenciales incorrectas")
	case errors.Is(err, auth.ErrUnknownRole):
		writeError(w, http.StatusForbidden, "role not supported")
	default:
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
	}
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Current must run behind middleware.RequireSession.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}
