package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
)

// Request body size cap. Nothing this API accepts is remotely this large.
const maxBodyBytes = 64 << 10

const minPasswordLength = 8

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON body into dst with strict field checking.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

func (req signupRequest) validate() error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	return validateNewPassword(req.Password, req.PasswordConfirm)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type federatedLoginRequest struct {
	IDToken string `json:"id_token"`
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type updatePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// userResponse is the public projection of a user record. The password
// hash and lockout counters never leave the service layer.
type userResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	DisplayName     string     `json:"display_name"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		DisplayName:     u.DisplayName(),
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		LastLoginAt:     u.LastLoginAt,
	}
}

// sessionResponse pairs the user projection with fresh session tokens.
type sessionResponse struct {
	User   userResponse     `json:"user"`
	Tokens domain.TokenPair `json:"tokens"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// messageResponse is the deliberately uniform body for flows that must not
// reveal whether an account exists.
type messageResponse struct {
	Message string `json:"message"`
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || len(email) > 254 {
		return errors.New("a valid email address is required")
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes; reject instead of silently
		// hashing a prefix.
		return errors.New("password must be at most 72 characters")
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	return nil
}
