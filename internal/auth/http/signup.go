package http

import (
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
)

type SignupHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP creates an unverified account and triggers the verification
// email. Returns 201 with the user projection; no session tokens are
// issued until the email is confirmed.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.AuthService.Signup(r.Context(), service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}
