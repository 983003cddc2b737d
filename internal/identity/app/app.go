// Package app wires configuration, storage, services and the HTTP server
// into one runnable application.
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

	"github.com/ironbark-dev/ironbark/internal/identity/events"
	httpapi "github.com/ironbark-dev/ironbark/internal/identity/http"
	"github.com/ironbark-dev/ironbark/internal/identity/service"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/internal/identity/store/drivers/sqlite"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	publisher events.Publisher

	tokenService  *service.TokenService
	userService   *service.UserService
	resetService  *service.PasswordResetService
	clientService *service.ClientService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initPublisher(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	// Seed the configured bootstrap client so a fresh install can hand out
	// credentials immediately.
	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := app.clientService.Bootstrap(ctx, service.BootstrapClient{
		ClientID:    cfg.BootstrapClientID,
		Secret:      cfg.BootstrapClientSecret,
		Name:        cfg.BootstrapClientName,
		RedirectURI: cfg.BootstrapRedirectURI,
		AccessTTL:   cfg.BootstrapAccessTTL,
	}); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to bootstrap client: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if closer, ok := app.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("error closing event publisher", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initDatabase opens the sqlite store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initPublisher connects the event sink. Without a Redis URL events are
// discarded.
func (app *Application) initPublisher() error {
	if app.cfg.RedisURL == "" {
		app.logger.Warn("no redis URL configured, domain events will be dropped")
		app.publisher = events.NopPublisher{}
		return nil
	}

	publisher, err := events.NewRedisPublisher(context.Background(), app.cfg.RedisURL, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}
	app.publisher = publisher
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	authService := &service.AuthService{Store: app.db}

	app.tokenService = &service.TokenService{
		Auth:   authService,
		Secret: []byte(app.cfg.JWTSecret),
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.TokenTTL,
	}

	app.userService = &service.UserService{Store: app.db, Publisher: app.publisher}
	app.resetService = &service.PasswordResetService{Store: app.db, Publisher: app.publisher}
	app.clientService = &service.ClientService{Store: app.db}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.ResetService = app.resetService
	router.ClientService = app.clientService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
