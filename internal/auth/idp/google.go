package idp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// GoogleIssuer is Google's OIDC issuer; endpoints and signing keys are
// discovered from its well-known configuration.
const GoogleIssuer = "https://accounts.google.com"

const defaultExchangeTimeout = 10 * time.Second

// GoogleVerifier validates Google-issued ID tokens against the discovered
// JWKS and the configured OAuth client id.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
}

// NewGoogleVerifier performs OIDC discovery against Google. The provided
// context bounds the discovery call only; per-exchange calls carry their
// own timeout.
func NewGoogleVerifier(ctx context.Context, clientID string, timeout time.Duration) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("idp: google discovery: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}
	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		timeout:  timeout,
	}, nil
}

// Exchange verifies the raw ID token and extracts the asserted identity.
// Verification failures map to ErrInvalidToken; timeouts and other
// transport failures are returned unwrapped so callers can retry.
func (g *GoogleVerifier) Exchange(ctx context.Context, rawIDToken string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Identity{}, fmt.Errorf("idp: google exchange timed out: %w", err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return Identity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}
