// Package app wires configuration, storage, services, and the HTTP server
// into a runnable application.
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

	"github.com/redis/go-redis/v9"
	"github.com/wayfarerhq/wayfarer/internal/auth/events"
	httpapi "github.com/wayfarerhq/wayfarer/internal/auth/http"
	"github.com/wayfarerhq/wayfarer/internal/auth/rate"
	"github.com/wayfarerhq/wayfarer/internal/auth/service"
	"github.com/wayfarerhq/wayfarer/internal/auth/store/drivers/sqlite"
	tripshttp "github.com/wayfarerhq/wayfarer/internal/trips/http"
	tripservice "github.com/wayfarerhq/wayfarer/internal/trips/service"
	tripsqlite "github.com/wayfarerhq/wayfarer/internal/trips/store/drivers/sqlite"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
	"github.com/wayfarerhq/wayfarer/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          *sqlite.Store
	signer      *jwtx.HS256
	publisher   events.Publisher
	redisClient *redis.Client // nil unless RedisAddr is configured

	// Services
	sessionService      *service.SessionService
	userService         *service.UserService
	tripService         *tripservice.TripService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "wayfarer",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	signer, err := jwtx.NewHS256([]byte(cfg.AccessTokenSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("wayfarer starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down wayfarer...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Flush the event sink before the process exits
	if err := app.publisher.Close(); err != nil {
		app.logger.Error("error closing event publisher", "error", err)
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("wayfarer stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
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

// initServices initializes all business logic services
func (app *Application) initServices() {
	if len(app.cfg.KafkaBrokers) > 0 {
		app.publisher = events.NewKafkaPublisher(app.cfg.KafkaBrokers, app.cfg.KafkaTopic)
		app.logger.Info("security events publishing to kafka", "topic", app.cfg.KafkaTopic)
	} else {
		app.publisher = events.LogPublisher{}
	}

	app.sessionService = &service.SessionService{
		Store:  app.db,
		Signer: app.signer,
		Events: app.publisher,

		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,

		LockoutThreshold: app.cfg.LockoutThreshold,
		LockoutDuration:  app.cfg.LockoutDuration,
	}

	app.userService = &service.UserService{Store: app.db}

	// The trips store shares the auth database pool, so collaborator rows
	// cascade when a user account is deleted.
	app.tripService = &tripservice.TripService{
		Store: tripsqlite.NewStore(app.db.DB()),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.SessionService = app.sessionService
	router.UserService = app.userService

	if app.cfg.RedisAddr != "" {
		app.redisClient = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		router.SharedLimiter = rate.New(app.redisClient, "rl")
		app.logger.Info("cluster-wide rate limiting enabled", "addr", app.cfg.RedisAddr)
	}

	router.ApplyRoutes()
	tripshttp.Register(router.Mux, app.signer, app.tripService)

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
