package service

import (
	"context"
	"testing"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
	"github.com/solsticehq/solstice/internal/auth/idp"
	"github.com/stretchr/testify/require"
)

func TestSignupAndVerificationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.signup(t, "quinn@example.com", "correct horse battery")
	require.False(t, user.IsEmailVerified)
	require.Equal(t, "quinn@example.com", user.Email)

	t.Run("login blocked until verified", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "quinn@example.com", "correct horse battery")
		require.ErrorIs(t, err, ErrEmailNotVerified)
	})

	secret := env.mailer.lastVerification(t).secret

	t.Run("verification logs the user in and sends the welcome mail", func(t *testing.T) {
		verified, pair, err := env.auth.VerifyEmail(ctx, secret)
		require.NoError(t, err)
		require.True(t, verified.IsEmailVerified)
		require.NotNil(t, verified.EmailVerifiedAt)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Len(t, env.mailer.welcomes, 1)

		got, err := env.tokens.Authenticate(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("verification secret is single use", func(t *testing.T) {
		_, _, err := env.auth.VerifyEmail(ctx, secret)
		require.ErrorIs(t, err, ErrInvalidActionToken)
	})

	t.Run("login succeeds once verified", func(t *testing.T) {
		got, pair, err := env.auth.Login(ctx, "quinn@example.com", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.NotNil(t, got.LastLoginAt)
		require.NotEmpty(t, pair.AccessToken)
	})
}

func TestSignupNormalizesAndRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.signup(t, "  Casey@Example.COM ", "a long password")
	require.Equal(t, "casey@example.com", user.Email)

	_, err := env.auth.Signup(ctx, SignupInput{
		Email:    "casey@example.com",
		Password: "another password",
	})
	require.ErrorIs(t, err, ErrEmailTaken)

	// Different casing of the same address is still the same account.
	_, err = env.auth.Signup(ctx, SignupInput{
		Email:    "CASEY@example.com",
		Password: "another password",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignupSurvivesMailOutage(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.fail = true

	user := env.signup(t, "dana@example.com", "a long password")

	// Account exists; once mail is back a resend delivers a working link.
	env.mailer.fail = false
	require.NoError(t, env.auth.ResendVerification(context.Background(), "dana@example.com"))

	secret := env.mailer.lastVerification(t).secret
	verified, _, err := env.auth.VerifyEmail(context.Background(), secret)
	require.NoError(t, err)
	require.Equal(t, user.ID, verified.ID)
}

func TestLoginFailureTaxonomy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signupVerified(t, "rory@example.com", "the right password")

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "rory@example.com", "the wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signupVerified(t, "sam@example.com", "the right password")

	// Four failures are plain credential errors.
	for i := 0; i < DefaultLockThreshold-1; i++ {
		_, _, err := env.auth.Login(ctx, "sam@example.com", "bad guess")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	t.Run("fifth failure reports the lockout", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "sam@example.com", "bad guess")
		require.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("correct password is refused while locked", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "sam@example.com", "the right password")
		require.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("lock expires on its own", func(t *testing.T) {
		env.advance(DefaultLockDuration + time.Minute)

		user, _, err := env.auth.Login(ctx, "sam@example.com", "the right password")
		require.NoError(t, err)
		require.Zero(t, user.LoginAttempts)
		require.Nil(t, user.LockUntil)
	})

	t.Run("success reset the counter", func(t *testing.T) {
		// A single failure after the successful login starts from one,
		// not from the pre-lockout count.
		_, _, err := env.auth.Login(ctx, "sam@example.com", "bad guess")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestExpiredFailureWindowStartsFresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signupVerified(t, "toni@example.com", "the right password")

	// Trip the lock, wait it out, then fail once more. The stale lock
	// means the counter restarts instead of locking immediately again.
	for i := 0; i < DefaultLockThreshold; i++ {
		_, _, _ = env.auth.Login(ctx, "toni@example.com", "bad guess")
	}
	env.advance(DefaultLockDuration + time.Minute)

	_, _, err := env.auth.Login(ctx, "toni@example.com", "bad guess")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		require.NoError(t, env.auth.ResendVerification(ctx, "ghost@example.com"))
		require.Empty(t, env.mailer.verifications)
	})

	env.signup(t, "lee@example.com", "a long password")
	first := env.mailer.lastVerification(t).secret

	t.Run("throttled while a link is outstanding", func(t *testing.T) {
		require.ErrorIs(t, env.auth.ResendVerification(ctx, "lee@example.com"), ErrVerificationPending)
	})

	t.Run("reissue after expiry invalidates the old link", func(t *testing.T) {
		env.advance(DefaultVerificationTokenTTL + time.Minute)
		require.NoError(t, env.auth.ResendVerification(ctx, "lee@example.com"))
		second := env.mailer.lastVerification(t).secret
		require.NotEqual(t, first, second)

		_, _, err := env.auth.VerifyEmail(ctx, first)
		require.ErrorIs(t, err, ErrInvalidActionToken)

		user, _, err := env.auth.VerifyEmail(ctx, second)
		require.NoError(t, err)
		require.True(t, user.IsEmailVerified)
	})

	t.Run("already verified accounts are told so", func(t *testing.T) {
		require.ErrorIs(t, env.auth.ResendVerification(ctx, "lee@example.com"), ErrAlreadyVerified)
	})
}

func TestExpiredVerificationLinkRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "noa@example.com", "a long password")
	secret := env.mailer.lastVerification(t).secret

	env.advance(DefaultVerificationTokenTTL + time.Minute)

	_, _, err := env.auth.VerifyEmail(ctx, secret)
	require.ErrorIs(t, err, ErrInvalidActionToken)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signupVerified(t, "vic@example.com", "old password 123")

	_, pair, err := env.auth.Login(ctx, "vic@example.com", "old password 123")
	require.NoError(t, err)

	t.Run("unknown email gets the same silent success", func(t *testing.T) {
		require.NoError(t, env.auth.ForgotPassword(ctx, "ghost@example.com"))
		require.Empty(t, env.mailer.resets)
	})

	require.NoError(t, env.auth.ForgotPassword(ctx, "vic@example.com"))
	secret := env.mailer.lastReset(t).secret

	env.advance(time.Second)
	require.NoError(t, env.auth.ResetPassword(ctx, secret, "new password 456"))

	t.Run("reset secret is single use", func(t *testing.T) {
		require.ErrorIs(t, env.auth.ResetPassword(ctx, secret, "yet another"), ErrInvalidActionToken)
	})

	t.Run("old password no longer works", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "vic@example.com", "old password 123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("new password logs in", func(t *testing.T) {
		got, _, err := env.auth.Login(ctx, "vic@example.com", "new password 456")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("sessions issued before the reset are dead", func(t *testing.T) {
		_, err := env.tokens.Authenticate(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrSessionInvalid)

		_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestForgotPasswordPropagatesMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.signupVerified(t, "ira@example.com", "a long password")

	env.mailer.fail = true
	require.Error(t, env.auth.ForgotPassword(context.Background(), "ira@example.com"))
}

func TestForgotPasswordReissueInvalidatesOldLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signupVerified(t, "mel@example.com", "a long password")

	require.NoError(t, env.auth.ForgotPassword(ctx, "mel@example.com"))
	first := env.mailer.lastReset(t).secret

	require.NoError(t, env.auth.ForgotPassword(ctx, "mel@example.com"))
	second := env.mailer.lastReset(t).secret
	require.NotEqual(t, first, second)

	require.ErrorIs(t, env.auth.ResetPassword(ctx, first, "new password 456"), ErrInvalidActionToken)
	require.NoError(t, env.auth.ResetPassword(ctx, second, "new password 456"))
}

func TestFederatedLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.idp.identity = idp.Identity{
		Subject:       "google-subject-1",
		Email:         "Pat@Example.com",
		EmailVerified: true,
		GivenName:     "Pat",
		FamilyName:    "Reyes",
	}

	t.Run("first login creates a verified account", func(t *testing.T) {
		user, pair, err := env.auth.FederatedLogin(ctx, "provider-token")
		require.NoError(t, err)
		require.Equal(t, "pat@example.com", user.Email)
		require.Equal(t, "google-subject-1", user.FederatedID)
		require.True(t, user.IsEmailVerified)
		require.NotEmpty(t, pair.AccessToken)
	})

	t.Run("subsequent logins reuse the account", func(t *testing.T) {
		first, _, err := env.auth.FederatedLogin(ctx, "provider-token")
		require.NoError(t, err)
		second, _, err := env.auth.FederatedLogin(ctx, "provider-token")
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("password login is impossible against the placeholder", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "pat@example.com", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, err = env.auth.Login(ctx, "pat@example.com", "any guess at all")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejected provider token", func(t *testing.T) {
		env.idp.err = idp.ErrInvalidToken
		defer func() { env.idp.err = nil }()
		_, _, err := env.auth.FederatedLogin(ctx, "garbage")
		require.ErrorIs(t, err, ErrInvalidProviderToken)
	})
}

func TestFederatedLoginLinksExistingAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Unverified local account; the provider's email assertion verifies it.
	local := env.signup(t, "jo@example.com", "local password 1")

	env.idp.identity = idp.Identity{
		Subject:       "google-subject-2",
		Email:         "jo@example.com",
		EmailVerified: true,
	}

	user, _, err := env.auth.FederatedLogin(ctx, "provider-token")
	require.NoError(t, err)
	require.Equal(t, local.ID, user.ID)
	require.Equal(t, "google-subject-2", user.FederatedID)
	require.True(t, user.IsEmailVerified)

	// The original password still works now that the account is verified.
	got, _, err := env.auth.Login(ctx, "jo@example.com", "local password 1")
	require.NoError(t, err)
	require.Equal(t, local.ID, got.ID)
}

func TestFederatedLoginClearsLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signupVerified(t, "max@example.com", "the right password")

	for i := 0; i < DefaultLockThreshold; i++ {
		_, _, _ = env.auth.Login(ctx, "max@example.com", "bad guess")
	}
	_, _, err := env.auth.Login(ctx, "max@example.com", "the right password")
	require.ErrorIs(t, err, ErrAccountLocked)

	env.idp.identity = idp.Identity{
		Subject:       "google-subject-3",
		Email:         "max@example.com",
		EmailVerified: true,
	}
	got, _, err := env.auth.FederatedLogin(ctx, "provider-token")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	// Proving the identity through the provider unlocks password login too.
	_, _, err = env.auth.Login(ctx, "max@example.com", "the right password")
	require.NoError(t, err)
}

func TestVerifyEmailAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signupVerified(t, "ash@example.com", "a long password")

	// A stray link minted after verification must not pretend to work.
	secret, err := env.actions.Issue(ctx, user.ID, domain.TokenKindEmailVerification)
	require.NoError(t, err)

	_, _, err = env.auth.VerifyEmail(ctx, secret)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestActionTokensForVanishedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("verification link", func(t *testing.T) {
		user := env.signup(t, "ghost@example.com", "a long password")
		secret := env.mailer.lastVerification(t).secret

		require.NoError(t, env.store.Users().SoftDeleteUser(ctx, user.ID))

		_, _, err := env.auth.VerifyEmail(ctx, secret)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("reset link", func(t *testing.T) {
		user := env.signupVerified(t, "shade@example.com", "a long password")
		require.NoError(t, env.auth.ForgotPassword(ctx, "shade@example.com"))
		secret := env.mailer.lastReset(t).secret

		require.NoError(t, env.store.Users().SoftDeleteUser(ctx, user.ID))

		err := env.auth.ResetPassword(ctx, secret, "a newer password")
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}
