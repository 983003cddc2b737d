package http

import (
	"encoding/json"
	"net/http"

	"github.com/ironbark-dev/ironbark/internal/identity/service"
	"github.com/ironbark-dev/ironbark/pkg/httpx"
)

// UsersHandler handles the account management endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

type createUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// HandleCreate handles POST /api/user. Public signup: no actor, requested
// roles resolved (or defaulted) by the service.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}

	view, err := h.UserService.CreateUser(ctx, req.Username, req.Password, req.Roles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, view)
}

// HandleList handles GET /api/user. Admin-only; gated in the router.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.UserService.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

// HandleGet handles GET /api/user/{username}. The admin-or-self policy runs
// in the service against the acting principal.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := PrincipalFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required")
		return
	}

	view, err := h.UserService.GetByUsername(ctx, actor, r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /api/user/{id}.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := PrincipalFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required")
		return
	}

	if err := h.UserService.DeleteByID(ctx, actor, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGrant handles PATCH /api/user/grant/{username}. Admin-only; gated in
// the router, the service only needs the target.
func (h *UsersHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.ElevateToAdmin(r.Context(), r.PathValue("username")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
