// Package idp verifies identity assertions from external providers used
// for federated login. The provider asserts the email; the auth service
// trusts that assertion instead of running its own verification flow.
package idp

import (
	"context"
	"errors"
)

// ErrInvalidToken reports a provider token that failed verification
// (bad signature, wrong audience, expired). Transport failures are
// returned as-is so callers can treat them as retryable.
var ErrInvalidToken = errors.New("idp: invalid provider token")

// Identity is what a successful token exchange yields.
type Identity struct {
	Subject       string // provider-scoped stable user id
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// Verifier exchanges a provider-issued ID token for the identity it
// asserts.
type Verifier interface {
	Exchange(ctx context.Context, rawIDToken string) (Identity, error)
}
