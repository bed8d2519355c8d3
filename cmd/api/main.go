// Package main is the entry point for the marketplace API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tripbazaar/backend/internal/auth"
	"github.com/tripbazaar/backend/internal/config"
	"github.com/tripbazaar/backend/internal/events"
	"github.com/tripbazaar/backend/internal/handler"
	"github.com/tripbazaar/backend/internal/middleware"
	"github.com/tripbazaar/backend/internal/registration"
	"github.com/tripbazaar/backend/internal/repo"
	"github.com/tripbazaar/backend/internal/scheduler"
	"github.com/tripbazaar/backend/internal/service"
	"github.com/tripbazaar/backend/migrations"
	"github.com/tripbazaar/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	// pgxpool.New does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		sqlDB := stdlib.OpenDBFromPool(pool)
		applied, err := migrations.Up(ctx, sqlDB)
		sqlDB.Close()
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", applied)
	}

	// --- Redis ------------------------------------------------------------
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	// --- Events -----------------------------------------------------------
	var pub events.Publisher = events.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		conn, ch, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer conn.Close()
		pub = events.NewAMQPPublisher(ch, cfg.AMQPExchange, events.DefaultBreakerSettings, logger)
		logger.Info("publishing events to broker", "exchange", cfg.AMQPExchange)
	}

	// --- Services ---------------------------------------------------------
	store := repo.NewStore(pool, cfg.TxMaxRetries)
	reads := repo.NewRepos(pool)

	moderation := service.NewModerationService(store, pub, logger)
	bookings := service.NewBookingService(store, reads.Bookings, pub, logger)
	srv := handler.NewServer(handler.Services{
		Cart:       service.NewCartService(store, reads.Carts, cfg.MaxCartQuantity, logger),
		Bookings:   bookings,
		Moderation: moderation,
		Catalog:    service.NewCatalogService(store, reads.Listings, moderation, pub, logger),
		Registration: service.NewRegistrationService(
			registration.NewStore(rdb), store, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
			cfg.PendingRegistrationTTL, logger),
	}, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	resolver := auth.NewResolver(cfg.JWTSecret, reads.Actors)
	r.Mount("/", srv.Routes(auth.Middleware(resolver, srv.WriteError), spec.OpenAPI))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The server and the completion sweep share one lifetime: a signal or a
	// failure of either stops both.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.New(bookings, cfg.CompletionSweepInterval, logger).Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		// Give in-flight requests up to 15 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
