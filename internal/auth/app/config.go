package app

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/pkg/cryptox"
	"github.com/solsticehq/solstice/pkg/jwtx"
)

type Config struct {
	Issuer   string // Required: issuer claim for session tokens
	Audience string // Optional: audience claim (default: issuer)

	AccessSecret  string // Required: HS256 signing secret for access tokens
	RefreshSecret string // Required: HS256 signing secret for refresh tokens

	AccessTTL  time.Duration // Optional: access token lifetime (default: 7 days)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 30 days)

	VerificationTokenTTL time.Duration // Optional: email verification link lifetime (default: 24h)
	ResetTokenTTL        time.Duration // Optional: password reset link lifetime (default: 1h)

	BcryptCost    int           // Optional: bcrypt work factor (default: 12)
	LockThreshold int           // Optional: failures before lockout (default: 5)
	LockDuration  time.Duration // Optional: lockout length (default: 2h)

	DatabaseFile string // Optional: path to SQLite database file (default: ./solstice.db)

	SMTPHost     string // Optional: SMTP relay host; empty switches to the log sender
	SMTPPort     int    // Optional: SMTP relay port (default: 587)
	SMTPUsername string
	SMTPPassword string
	MailFrom     string // Optional: From address (default: no-reply@localhost)
	FrontendURL  string // Optional: base URL for email links (default: http://localhost:3000)

	GoogleClientID string // Optional: enables Google federated login when set

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Token purge interval (default: 1h)
	TokenRetention       time.Duration // How long stale token rows are kept (default: 24h)
}

func LoadConfig() Config {
	return Config{
		Issuer:   getEnvOrDefault("AUTH_ISSUER", "solstice-auth"),
		Audience: os.Getenv("AUTH_AUDIENCE"),

		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		VerificationTokenTTL: getEnvDurationOrDefault("AUTH_VERIFICATION_TOKEN_TTL", service.DefaultVerificationTokenTTL),
		ResetTokenTTL:        getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", service.DefaultPasswordResetTokenTTL),

		BcryptCost:    getEnvIntOrDefault("AUTH_BCRYPT_COST", cryptox.DefaultCost),
		LockThreshold: getEnvIntOrDefault("AUTH_LOCK_THRESHOLD", service.DefaultLockThreshold),
		LockDuration:  getEnvDurationOrDefault("AUTH_LOCK_DURATION", service.DefaultLockDuration),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "solstice.db"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "no-reply@localhost"),
		FrontendURL:  getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", service.DefaultHousekeepingInterval),
		TokenRetention:       getEnvDurationOrDefault("TOKEN_RETENTION", service.DefaultTokenRetention),
	}
}

// Validate rejects configurations that cannot possibly run. Secrets are
// the only hard requirement; everything else has a sane default.
func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must be set")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
