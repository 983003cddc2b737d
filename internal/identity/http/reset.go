package http

import (
	"encoding/json"
	"net/http"

	"github.com/ironbark-dev/ironbark/internal/identity/service"
	"github.com/ironbark-dev/ironbark/pkg/httpx"
)

// ResetHandler handles the password-reset endpoints. Both are public: the
// token itself is the proof of ownership.
type ResetHandler struct {
	ResetService *service.PasswordResetService
}

type createResetTokenRequest struct {
	Username string `json:"username"`
}

type createResetTokenResponse struct {
	Token string `json:"token"`
}

// HandleCreateToken handles POST /api/user/reset/token.
func (h *ResetHandler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req createResetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}
	if req.Username == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "username is required")
		return
	}

	token, err := h.ResetService.CreateToken(r.Context(), req.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, createResetTokenResponse{Token: token})
}

type resetPasswordRequest struct {
	Username    string `json:"username"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleResetPassword handles PUT /api/user/password.
func (h *ResetHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}

	err := h.ResetService.ResetPassword(r.Context(), req.Username, req.Token, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
