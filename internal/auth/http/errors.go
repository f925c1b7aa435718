package http

import (
	"errors"
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
	"github.com/solsticehq/solstice/pkg/slogx"
)

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged; expected rejections do not.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden, "email_not_verified", "verify your email address before logging in")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusLocked, "account_locked", "account temporarily locked after repeated failures, try again later")
	case errors.Is(err, service.ErrInvalidActionToken):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_token", "the link is invalid or has expired")
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, http.StatusConflict, "already_verified", "email address is already verified")
	case errors.Is(err, service.ErrVerificationPending):
		httpx.WriteError(w, http.StatusTooManyRequests, "verification_pending", "a verification email was sent recently, check your inbox")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, service.ErrSessionInvalid):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_session", "session token is invalid or expired")
	case errors.Is(err, service.ErrInvalidProviderToken):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_provider_token", "identity provider token was rejected")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
}
