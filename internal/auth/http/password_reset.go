package http

import (
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
)

type PasswordResetHandler struct {
	AuthService *service.AuthService
}

// HandleForgot requests a reset link. The response body is byte-identical
// whether or not the email maps to an account.
func (h *PasswordResetHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "if an account exists for this email, a reset link has been sent",
	})
}

// HandleReset consumes the emailed reset link and installs the new
// password. No session is issued; the user logs in with the new password.
func (h *PasswordResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("token")
	if secret == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "reset token is required")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.AuthService.ResetPassword(r.Context(), secret, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "password updated, log in with your new password",
	})
}
