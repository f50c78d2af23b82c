package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/zeninvest/backend/src/logger"
	"github.com/username/zeninvest/backend/src/models"
	"github.com/username/zeninvest/backend/src/security"
	"github.com/username/zeninvest/backend/src/services"
)

type AuthHandler struct {
	authService *security.AuthService
	sessions    *services.SessionService
}

func NewAuthHandler(authService *security.AuthService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

type loginResponse struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

// LoginHandler resolves a display name to a journaling identity (creating
// it on first use) and issues an access token for it.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.sessions.Login(req.DisplayName)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Login failed", "displayName", req.DisplayName, "error", err)
		sendJSONError(w, "Display name is required", http.StatusBadRequest)
		return
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to generate access token", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	logger.InfoFromContext(r.Context(), "User logged in", "userID", user.ID, "displayName", user.DisplayName)
	sendJSON(w, loginResponse{User: user, AccessToken: token}, http.StatusOK)
}

// SessionHandler resumes the last active session. 204 means no session to
// resume and the client must show the login screen.
func (h *AuthHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok, err := h.sessions.Resume()
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to resume session", "error", err)
		sendJSONError(w, "Failed to resume session", http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to generate access token", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to resume session", http.StatusInternalServerError)
		return
	}
	sendJSON(w, loginResponse{User: user, AccessToken: token}, http.StatusOK)
}

// LogoutHandler clears the last-active-session pointer. The user and their
// plans are untouched.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(); err != nil {
		logger.ErrorFromContext(r.Context(), "Logout failed", "error", err)
		sendJSONError(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	sendJSON(w, map[string]string{"message": "Logged out"}, http.StatusOK)
}
