package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/service"
	"github.com/ironbark-dev/ironbark/pkg/httpx"
)

// ClientsHandler handles client-credential registration.
type ClientsHandler struct {
	ClientService *service.ClientService
}

type createClientRequest struct {
	ClientID              string         `json:"client_id"`
	ClientSecret          string         `json:"client_secret,omitempty"`
	Name                  string         `json:"name"`
	AuthenticationMethods []string       `json:"authentication_methods,omitempty"`
	GrantTypes            []string       `json:"grant_types,omitempty"`
	RedirectURIs          []string       `json:"redirect_uris,omitempty"`
	Scopes                []string       `json:"scopes,omitempty"`
	ClientSettings        map[string]any `json:"client_settings,omitempty"`
	TokenSettings         map[string]any `json:"token_settings,omitempty"`
	SecretExpiresAt       *time.Time     `json:"secret_expires_at,omitempty"`
}

type createClientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// HandleCreate handles POST /api/client. The plaintext secret appears in
// this response and nowhere else.
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}

	clientID, secret, err := h.ClientService.Register(r.Context(), service.RegisterClientInput{
		ClientID:              req.ClientID,
		Secret:                req.ClientSecret,
		Name:                  req.Name,
		AuthenticationMethods: req.AuthenticationMethods,
		GrantTypes:            req.GrantTypes,
		RedirectURIs:          req.RedirectURIs,
		Scopes:                req.Scopes,
		ClientSettings:        req.ClientSettings,
		TokenSettings:         req.TokenSettings,
		SecretExpiresAt:       req.SecretExpiresAt,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, createClientResponse{
		ClientID:     clientID,
		ClientSecret: secret,
	})
}
