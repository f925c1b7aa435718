package http

import (
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
	"github.com/solsticehq/solstice/pkg/jwtx"
)

// BearerMiddleware authenticates the Authorization header against the
// token service and injects the user id into the request context. The
// lookup already excludes soft-deleted users and sessions voided by a
// later password change.
func BearerMiddleware(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwtx.ExtractBearer(r.Header.Get("Authorization"))
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_session", "missing bearer token")
				return
			}

			user, err := tokens.Authenticate(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			ctx := httpx.ContextWithUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
