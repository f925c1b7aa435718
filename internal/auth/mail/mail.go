// Package mail sends account lifecycle email. Callers hand over the raw
// action secret; the sender builds the user-facing link so the service
// layer stays unaware of frontend URLs.
package mail

import "context"

// Sender delivers the three account lifecycle messages.
type Sender interface {
	// SendVerification delivers the email-verification link minted at
	// signup or resend.
	SendVerification(ctx context.Context, to, name, secret string) error

	// SendPasswordReset delivers a password-reset link.
	SendPasswordReset(ctx context.Context, to, name, secret string) error

	// SendWelcome delivers the post-verification welcome message.
	SendWelcome(ctx context.Context, to, name string) error
}
