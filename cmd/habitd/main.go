// Command habitd runs the habit tracker REST API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/habitloop/habitd/internal/app"
	"github.com/habitloop/habitd/internal/app/auth"
	"github.com/habitloop/habitd/internal/app/httpapi"
	"github.com/habitloop/habitd/internal/app/storage/postgres"
	"github.com/habitloop/habitd/internal/config"
	"github.com/habitloop/habitd/internal/middleware"
	"github.com/habitloop/habitd/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "habitd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New("habitd", cfg.LogLevel)

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := postgres.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		store := postgres.New(db)
		stores = app.Stores{Users: store, Habits: store, Logs: store}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	application := app.New(stores, log)
	tokens := auth.NewTokenService(cfg.JWTSecret)

	apiCfg := httpapi.Config{}
	var generalLimiter *middleware.RateLimiter
	if !cfg.RateLimitDisabled {
		generalLimiter = middleware.NewRateLimiter(100, time.Hour,
			"Too many requests from this IP, please try again after an hour", log)
		authLimiter := middleware.NewRateLimiter(5, 15*time.Minute,
			"Too many authentication attempts, please try again after 15 minutes", log)
		apiLimiter := middleware.NewRateLimiter(200, time.Hour,
			"API rate limit exceeded, please try again later", log)

		generalLimiter.StartCleanup(10 * time.Minute)
		authLimiter.StartCleanup(10 * time.Minute)
		apiLimiter.StartCleanup(10 * time.Minute)

		apiCfg.AuthLimiter = authLimiter.Handler
		apiCfg.APILimiter = apiLimiter.Handler
	}

	var handler http.Handler = httpapi.NewHandler(application, tokens, apiCfg, log)
	if generalLimiter != nil {
		handler = generalLimiter.Handler(handler)
	}
	handler = middleware.CORS(cfg.CORSAllowedOrigins)(handler)
	handler = middleware.NewTracingMiddleware(log).Handler(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
