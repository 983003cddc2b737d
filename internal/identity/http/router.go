// Package http is the transport boundary: thin handlers that decode
// requests, call the services, and map the service error taxonomy onto
// status codes. No business rules live here.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/service"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/pkg/httpx"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	TokenService  *service.TokenService
	UserService   *service.UserService
	ResetService  *service.PasswordResetService
	ClientService *service.ClientService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerResets()
	r.registerTokens()
	r.registerClients()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// POST /api/user - public signup, strict rate limit by IP
	r.Mux.Handle("POST /api/user",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /api/user - admin-only listing
	r.Mux.Handle("GET /api/user",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn, requireAdmin,
		),
	)

	// GET /api/user/{username} - admin-or-self, enforced by the service
	r.Mux.Handle("GET /api/user/{username}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authn,
		),
	)

	// DELETE /api/user/{id} - admin-or-self, enforced by the service
	r.Mux.Handle("DELETE /api/user/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			r.authn,
		),
	)

	// PATCH /api/user/grant/{username} - admin-only elevation
	r.Mux.Handle("PATCH /api/user/grant/{username}",
		httpx.Chain(http.HandlerFunc(h.HandleGrant),
			r.authn, requireAdmin,
		),
	)
}

func (r *Router) registerResets() {
	h := &ResetHandler{ResetService: r.ResetService}

	// Both reset endpoints are public and credential-sensitive: strict
	// rate limit by IP.
	r.Mux.Handle("POST /api/user/reset/token",
		httpx.Chain(http.HandlerFunc(h.HandleCreateToken),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("PUT /api/user/password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTokens() {
	h := &TokenHandler{TokenService: r.TokenService}

	// POST /api/token - password login, strict rate limit by IP
	r.Mux.Handle("POST /api/token",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	// POST /api/client - admin-only registration. Rate limit sits outermost
	// so unauthenticated floods are throttled before token verification.
	r.Mux.Handle("POST /api/client",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			r.authn, requireAdmin,
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
