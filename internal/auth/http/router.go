package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/pkg/httpx"
	"github.com/solsticehq/solstice/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService  *service.AuthService
	TokenService *service.TokenService
	UserService  *service.UserService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMe()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credential endpoints are the brute-force surface; everything here is
	// strictly limited by IP on top of the account lockout.
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(&SignupHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	verifyHandler := &VerifyEmailHandler{AuthService: r.AuthService}

	// GET because the link lands in an email client.
	r.Mux.Handle("GET /v1/auth/verify-email/{token}",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/resend-verification",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleResend),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	resetHandler := &PasswordResetHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(resetHandler.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/reset-password/{token}",
		httpx.Chain(http.HandlerFunc(resetHandler.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/google",
		httpx.Chain(&FederatedLoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMe() {
	h := &MeHandler{UserService: r.UserService}
	bearer := BearerMiddleware(r.TokenService)

	r.Mux.Handle("GET /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			bearer,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("PATCH /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			bearer,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Strict by user: the current-password check is a credential check.
	r.Mux.Handle("PUT /v1/users/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleUpdatePassword),
			bearer,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("DELETE /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			bearer,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
