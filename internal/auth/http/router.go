// Package http exposes the authentication API over HTTP.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/rate"
	"github.com/wayfarerhq/wayfarer/internal/auth/service"
	"github.com/wayfarerhq/wayfarer/internal/auth/store"
	"github.com/wayfarerhq/wayfarer/pkg/httpx"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

// Router holds shared dependencies for the HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	SessionService *service.SessionService
	UserService    *service.UserService

	// SharedLimiter adds cluster-wide fixed-window limits in front of the
	// credential endpoints when Redis is configured. Optional.
	SharedLimiter *rate.Limiter
}

func NewRouter(verifier jwtx.Verifier, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain in front of the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// strict wraps a credential-submitting endpoint with the in-process token
// bucket and, when configured, the cluster-wide fixed-window limiter.
func (r *Router) strict(h http.Handler, mws ...httpx.Middleware) http.Handler {
	if r.SharedLimiter != nil {
		mws = append(mws, r.SharedLimiter.Middleware(httpx.StrictLimit, httpx.IPKeyExtractor))
	}
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.SessionService}

	// Credential endpoints sit behind the strict profile, keyed by client
	// IP plus the submitted email so one address cannot farm attempts
	// across accounts.
	r.Mux.Handle("POST /v1/auth/register",
		r.strict(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIPAndBodyField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		r.strict(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndBodyField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/oauth",
		r.strict(http.HandlerFunc(h.HandleOAuth),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		r.strict(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Logout is safe to retry and carries no credentials to brute-force.
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	me := &MeHandler{Users: r.UserService}
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(me,
			httpx.Authn(r.verifier),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Sessions: r.SessionService}

	// Users manage their own sessions.
	r.Mux.Handle("GET /v1/auth/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleListOwn),
			httpx.Authn(r.verifier),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/auth/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeOwn),
			httpx.Authn(r.verifier),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &SessionsHandler{Sessions: r.SessionService}

	// Admin surface: inspect and bulk-revoke any user's sessions.
	r.Mux.Handle("GET /v1/admin/users/{userID}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleListUser),
			httpx.Authn(r.verifier),
			httpx.RequireAdmin(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/admin/users/{userID}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeUser),
			httpx.Authn(r.verifier),
			httpx.RequireAdmin(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
