package http

import (
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
)

type VerifyEmailHandler struct {
	AuthService *service.AuthService
}

// HandleVerify consumes the emailed verification link and logs the user
// straight in.
func (h *VerifyEmailHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	secret := r.PathValue("token")
	if secret == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "verification token is required")
		return
	}

	user, pair, err := h.AuthService.VerifyEmail(r.Context(), secret)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		User:   toUserResponse(user),
		Tokens: pair,
	})
}

// HandleResend mints a fresh verification link. Unknown emails get the
// same response as known ones.
func (h *VerifyEmailHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.AuthService.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "if an account exists for this email, a verification link has been sent",
	})
}
