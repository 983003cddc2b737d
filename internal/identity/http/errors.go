package http

import (
	"errors"
	"net/http"

	"github.com/ironbark-dev/ironbark/internal/identity/service"
	"github.com/ironbark-dev/ironbark/pkg/httpx"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// writeServiceError maps the service error taxonomy onto transport codes.
// Anything outside the taxonomy is a server fault and gets logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Missing or malformed request fields")
	case errors.Is(err, service.ErrTokenInvalidOrExpired):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_grant", "Reset token is invalid or expired")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Invalid username or password")
	case errors.Is(err, service.ErrAccessDenied):
		httpx.WriteError(w, http.StatusForbidden,
			"access_denied", "You are not allowed to perform this action")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"not_found", "The requested resource does not exist")
	case errors.Is(err, service.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict,
			"conflict", "Username is already taken")
	case errors.Is(err, service.ErrClientIDTaken):
		httpx.WriteError(w, http.StatusConflict,
			"conflict", "Client ID is already registered")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Internal server error")
	}
}
