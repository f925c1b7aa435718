package http

import (
	"net/http"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/httpx"
)

// MeHandler serves the authenticated self-service endpoints. All methods
// run behind the bearer middleware, so the user id is always in context.
type MeHandler struct {
	UserService *service.UserService
}

func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUser(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *MeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.UserService.UpdateProfile(r.Context(), httpx.UserIDFromContext(r.Context()), req.FirstName, req.LastName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdatePassword changes the password and hands back the only
// session pair that survives the change.
func (h *MeHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := validateNewPassword(req.NewPassword, req.NewPasswordConfirm); err != nil {
		writeValidationError(w, err)
		return
	}

	pair, err := h.UserService.UpdatePassword(r.Context(),
		httpx.UserIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *MeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.DeleteAccount(r.Context(), httpx.UserIDFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
