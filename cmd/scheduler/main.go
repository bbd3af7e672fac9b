package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/config"
	httptransport "github.com/example/session-scheduler/internal/http"
	"github.com/example/session-scheduler/internal/logging"
	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/session-scheduler/internal/recurrence"
)

const shutdownTimeout = 10 * time.Second

func main() {
	bootstrapLogger := logging.New(os.Stdout, slog.LevelInfo)

	if err := config.LoadDotEnv(); err != nil {
		bootstrapLogger.Error("failed to load .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		bootstrapLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := openStorage(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	app := newApplication(pool, cfg, logger, time.Now)
	if err := bootstrapAdmin(ctx, app.users, cfg.BootstrapAdmin, logger); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	logger.Info("scheduler API stopped")
	return nil
}

// openStorage opens the SQLite pool and brings the schema up to date.
func openStorage(ctx context.Context, dsn string, logger *slog.Logger) (*sqlite.ConnectionPool, error) {
	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	logger.Info("applying database migrations", "dsn", dsn)
	if err := pool.Migrate(ctx, logger); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return pool, nil
}

type schedulerApp struct {
	handler http.Handler
	users   *application.UserService
}

// newApplication wires repositories, services and handlers into one HTTP handler.
func newApplication(pool *sqlite.ConnectionPool, cfg config.Config, logger *slog.Logger, now func() time.Time) schedulerApp {
	idGenerator := func() string { return uuid.NewString() }
	engine := recurrence.NewEngine(cfg.Location)
	tokens := application.NewTokenCodec(cfg.SessionSecret)

	userRepo := sqlite.NewUserRepository(pool)
	availabilityRepo := newAvailabilityRepositoryAdapter(sqlite.NewAvailabilityRepository(pool))
	gameSessionRepo := newGameSessionRepositoryAdapter(sqlite.NewGameSessionRepository(pool))
	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))

	authService := application.NewAuthServiceWithLogger(newCredentialStoreAdapter(userRepo), sessionRepo, tokens, application.VerifyPassword, idGenerator, now, cfg.SessionTTL, logger)
	userService := application.NewUserServiceWithLogger(newUserRepositoryAdapter(userRepo), application.HashPassword, idGenerator, now, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(availabilityRepo, engine, idGenerator, now, cfg.NewRoleCanSchedule, logger)
	sessionService := application.NewSessionServiceWithLogger(gameSessionRepo, availabilityRepo, engine, idGenerator, now, logger)
	calendarService := application.NewCalendarServiceWithLogger(gameSessionRepo, cfg.Location, now, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		Availabilities: httptransport.NewAvailabilityHandler(availabilityService, cfg.Location, logger),
		Sessions:       httptransport.NewSessionHandler(sessionService, cfg.Location, logger),
		Calendar:       httptransport.NewCalendarHandler(calendarService, cfg.Location, logger),
		RequireAuth:    httptransport.RequireSession(authService, logger),
		Metrics:        httptransport.NewMetrics(),
		Health:         pool.Ping,
		Middleware:     []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return schedulerApp{handler: handler, users: userService}
}

// bootstrapAdmin promotes the configured account to admin. A missing account is
// logged and skipped so the operator can register it and restart.
func bootstrapAdmin(ctx context.Context, users *application.UserService, email string, logger *slog.Logger) error {
	if email == "" {
		return nil
	}
	if _, err := users.PromoteToAdmin(ctx, email); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			logger.Warn("bootstrap admin account is not registered yet", "email", email)
			return nil
		}
		return fmt.Errorf("failed to promote bootstrap admin: %w", err)
	}
	return nil
}
