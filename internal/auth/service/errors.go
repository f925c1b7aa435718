package service

import "errors"

// Service-level failure taxonomy. The HTTP layer maps these onto status
// codes; everything else bubbles up as a 500.
var (
	// ErrEmailTaken reports a signup against an email that already has an
	// account, active or soft-deleted.
	ErrEmailTaken = errors.New("service: email already registered")

	// ErrInvalidCredentials covers both unknown-email and wrong-password so
	// responses never reveal which half failed.
	ErrInvalidCredentials = errors.New("service: invalid credentials")

	// ErrEmailNotVerified blocks password login until the address is
	// confirmed.
	ErrEmailNotVerified = errors.New("service: email not verified")

	// ErrAccountLocked reports an active brute-force lockout.
	ErrAccountLocked = errors.New("service: account temporarily locked")

	// ErrInvalidActionToken covers unknown, expired and already-consumed
	// email-link secrets uniformly.
	ErrInvalidActionToken = errors.New("service: invalid or expired token")

	// ErrAlreadyVerified reports a verification attempt for an address that
	// is already confirmed.
	ErrAlreadyVerified = errors.New("service: email already verified")

	// ErrVerificationPending throttles resend requests while an unexpired
	// verification token is still outstanding.
	ErrVerificationPending = errors.New("service: verification email recently sent")

	// ErrUserNotFound reports a lookup for a missing or soft-deleted user.
	ErrUserNotFound = errors.New("service: user not found")

	// ErrSessionInvalid covers every session token rejection: bad signature,
	// expiry, wrong type, revoked by a later password change.
	ErrSessionInvalid = errors.New("service: session token invalid")

	// ErrInvalidProviderToken reports a federated login with an ID token the
	// provider verifier rejected.
	ErrInvalidProviderToken = errors.New("service: invalid provider token")
)
