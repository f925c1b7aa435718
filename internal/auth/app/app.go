package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/solsticehq/solstice/internal/auth/http"
	"github.com/solsticehq/solstice/internal/auth/idp"
	"github.com/solsticehq/solstice/internal/auth/mail"
	"github.com/solsticehq/solstice/internal/auth/service"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/internal/auth/store/drivers/sqlite"
	"github.com/solsticehq/solstice/pkg/jwtx"
	"github.com/solsticehq/solstice/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	mailer mail.Sender

	tokenService        *service.TokenService
	actionTokenService  *service.ActionTokenService
	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router

	stopHousekeeping context.CancelFunc
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "solstice-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initMailer()

	verifier, err := app.initIdentityProvider()
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices(verifier)
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	hkCtx, cancel := context.WithCancel(context.Background())
	app.stopHousekeeping = cancel
	go app.housekeepingService.Run(hkCtx)

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the HTTP server, housekeeping and database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.stopHousekeeping != nil {
		app.stopHousekeeping()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initMailer() {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("no SMTP relay configured, mail goes to the log")
		app.mailer = &mail.LogSender{Logger: app.logger}
		return
	}
	app.mailer = mail.NewSMTPSender(mail.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.MailFrom,
		BaseURL:  app.cfg.FrontendURL,
	})
}

// initIdentityProvider wires Google federated login when a client id is
// configured; without one the endpoint rejects every token.
func (app *Application) initIdentityProvider() (idp.Verifier, error) {
	if app.cfg.GoogleClientID == "" {
		app.logger.Warn("GOOGLE_CLIENT_ID not set, federated login disabled")
		return disabledVerifier{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verifier, err := idp.NewGoogleVerifier(ctx, app.cfg.GoogleClientID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize google verifier: %w", err)
	}
	return verifier, nil
}

func (app *Application) initServices(verifier idp.Verifier) {
	audience := app.cfg.Audience
	if audience == "" {
		audience = app.cfg.Issuer
	}

	jwtService := &jwtx.Service{
		Issuer:        app.cfg.Issuer,
		Audience:      audience,
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	}

	app.tokenService = service.NewTokenService(jwtService, app.db)
	app.actionTokenService = service.NewActionTokenService(app.db, app.cfg.VerificationTokenTTL, app.cfg.ResetTokenTTL)

	app.authService = service.NewAuthService(
		app.db,
		app.tokenService,
		app.actionTokenService,
		app.mailer,
		verifier,
		app.logger,
		service.AuthConfig{
			BcryptCost:    app.cfg.BcryptCost,
			LockThreshold: app.cfg.LockThreshold,
			LockDuration:  app.cfg.LockDuration,
		},
	)

	app.userService = service.NewUserService(app.db, app.tokenService, app.actionTokenService, app.cfg.BcryptCost)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.TokenRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// disabledVerifier stands in when federated login is not configured.
type disabledVerifier struct{}

func (disabledVerifier) Exchange(context.Context, string) (idp.Identity, error) {
	return idp.Identity{}, idp.ErrInvalidToken
}
