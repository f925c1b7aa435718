package http

import (
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
)

type FederatedLoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP exchanges a Google-issued ID token for a local session,
// creating or linking the account as needed.
func (h *FederatedLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req federatedLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.IDToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "id_token is required")
		return
	}

	user, pair, err := h.AuthService.FederatedLogin(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		User:   toUserResponse(user),
		Tokens: pair,
	})
}
