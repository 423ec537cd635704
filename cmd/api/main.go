package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/staffdesk/hradmin/internal/bootstrap"
	"github.com/staffdesk/hradmin/internal/controller"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/repository/postgres"
	"github.com/staffdesk/hradmin/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "hradmin-api", "hradmin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = randomSecret()
		app.Logger.Warn().Msg("auth.jwt_secret is not set, using a random secret; tokens will not survive a restart")
	}

	defaultMedium, err := payout.ParseMedium(cfg.Payout.DefaultMedium)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Invalid default payout medium")
	}

	// --- Repositories ---
	employeeRepo := postgres.NewEmployeeRepository(app.Pool)
	adminRepo := postgres.NewAdminRepository(app.Pool)
	batchRepo := postgres.NewBatchRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Services ---
	gateway, err := bootstrap.Gateway(&cfg.Payout, app.Metrics, app.Logger)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to build payout gateway")
	}
	authService := service.NewAuthService(adminRepo, jwtSecret, cfg.Auth.JWTExpiry, app.Logger)
	employeeService := service.NewEmployeeService(employeeRepo, txManager, app.Logger)
	payoutService := service.NewPayoutService(batchRepo, employeeService, outboxRepo, txManager, gateway, app.Logger,
		service.WithMetrics(app.Metrics),
		service.WithDefaultMedium(defaultMedium),
		service.WithStrictAmounts(cfg.Payout.StrictAmounts),
	)

	created, err := authService.EnsureDefaultAdmin(ctx, cfg.Auth.DefaultAdminPassword)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to seed default admin")
	}
	if created {
		app.Logger.Warn().Msg("Seeded the default admin account; change its password")
	}

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		DB: app.Pool,
		Redis: controller.PingFunc(func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}),
		AuthService:        authService,
		EmployeeService:    employeeService,
		PayoutService:      payoutService,
		IdempotencyStore:   idempotencyRepo,
		IdempotencyTTL:     cfg.Worker.IdempotencyTTL,
		Metrics:            app.Metrics,
		CORSConfig:         cfg.Server.CORS,
		JWTSecret:          jwtSecret,
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
		MaxUploadBytes:     cfg.Payout.MaxUploadBytes,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
