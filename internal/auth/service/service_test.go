package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
	"github.com/solsticehq/solstice/internal/auth/idp"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/internal/auth/store/drivers/sqlite"
	"github.com/solsticehq/solstice/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// testBcryptCost keeps hashing fast; production cost is irrelevant here.
const testBcryptCost = 4

type sentMail struct {
	to     string
	name   string
	secret string
}

type fakeMailer struct {
	mu            sync.Mutex
	verifications []sentMail
	resets        []sentMail
	welcomes      []sentMail
	fail          bool
}

func (m *fakeMailer) SendVerification(_ context.Context, to, name, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp relay unavailable")
	}
	m.verifications = append(m.verifications, sentMail{to, name, secret})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, name, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp relay unavailable")
	}
	m.resets = append(m.resets, sentMail{to, name, secret})
	return nil
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp relay unavailable")
	}
	m.welcomes = append(m.welcomes, sentMail{to: to, name: name})
	return nil
}

func (m *fakeMailer) lastVerification(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.verifications)
	return m.verifications[len(m.verifications)-1]
}

func (m *fakeMailer) lastReset(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resets)
	return m.resets[len(m.resets)-1]
}

type fakeVerifier struct {
	identity idp.Identity
	err      error
}

func (f *fakeVerifier) Exchange(context.Context, string) (idp.Identity, error) {
	if f.err != nil {
		return idp.Identity{}, f.err
	}
	return f.identity, nil
}

// testEnv wires the full service stack against an in-memory database with
// a controllable clock. The clock starts in the past so tokens minted
// under it are never not-yet-valid against real time.
type testEnv struct {
	store  store.Store
	clock  time.Time
	mailer *fakeMailer
	idp    *fakeVerifier

	tokens  *TokenService
	actions *ActionTokenService
	auth    *AuthService
	users   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	jwtService := &jwtx.Service{
		Issuer:        "solstice-test",
		Audience:      "solstice-test",
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     jwtx.DefaultAccessTokenTTL,
		RefreshTTL:    jwtx.DefaultRefreshTokenTTL,
	}

	env := &testEnv{
		store:  st,
		clock:  time.Now().Add(-24 * time.Hour).Truncate(time.Second),
		mailer: &fakeMailer{},
		idp:    &fakeVerifier{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env.tokens = NewTokenService(jwtService, st)
	env.tokens.now = env.now

	env.actions = NewActionTokenService(st, 0, 0)
	env.actions.now = env.now

	env.auth = NewAuthService(st, env.tokens, env.actions, env.mailer, env.idp, logger, AuthConfig{
		BcryptCost: testBcryptCost,
	})
	env.auth.now = env.now

	env.users = NewUserService(st, env.tokens, env.actions, testBcryptCost)
	env.users.now = env.now

	return env
}

func (e *testEnv) now() time.Time { return e.clock }

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

// signup creates an unverified account and returns it.
func (e *testEnv) signup(t *testing.T, email, password string) domain.User {
	t.Helper()
	user, err := e.auth.Signup(context.Background(), SignupInput{
		Email:     email,
		Password:  password,
		FirstName: "Quinn",
		LastName:  "Harper",
	})
	require.NoError(t, err)
	return user
}

// signupVerified runs the full signup+verification flow and returns the
// verified account.
func (e *testEnv) signupVerified(t *testing.T, email, password string) domain.User {
	t.Helper()
	e.signup(t, email, password)
	secret := e.mailer.lastVerification(t).secret
	user, _, err := e.auth.VerifyEmail(context.Background(), secret)
	require.NoError(t, err)
	require.True(t, user.IsEmailVerified)
	return user
}
