/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the parts pricing engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and read environment
  2. Initialize store (sqlite or postgres)
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

ENVIRONMENT:
  PORT           HTTP server port (default: 8080)
  DB_DRIVER      "sqlite" (default) or "postgres"
  DB_PATH        SQLite database path (default: pricing.db,
                 ":memory:" for in-memory)
  DATABASE_URL   Postgres connection string (required for postgres)
  MIN_MARGIN     Minimum margin alert threshold (default: 0.15)
  TARGET_MARGIN  Target margin alert threshold (default: 0.30)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/pricing.db ./server

  # Run against postgres
  DB_DRIVER=postgres DATABASE_URL=postgres://... ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go, store/postgres/postgres.go: Storage
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/pricing-engine/api"
	"github.com/warp/pricing-engine/pricing"
	"github.com/warp/pricing-engine/store/postgres"
	"github.com/warp/pricing-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments use the process environment.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	port := envOr("PORT", "8080")
	minMargin := envDecimal(logger, "MIN_MARGIN", "0.15")
	targetMargin := envDecimal(logger, "TARGET_MARGIN", "0.30")

	store, closeStore, err := openStore(logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	handler := api.NewHandler(store, logger, minMargin, targetMargin)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("min_margin", minMargin.String()),
			zap.String("target_margin", targetMargin.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore builds the configured store. The returned func releases it.
func openStore(logger *zap.Logger) (pricing.TxStore, func(), error) {
	switch driver := envOr("DB_DRIVER", "sqlite"); driver {
	case "postgres":
		st, err := postgres.New(context.Background(), os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres store")
		return st, st.Close, nil
	default:
		path := envOr("DB_PATH", "pricing.db")
		st, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", zap.String("path", path))
		return st, func() { st.Close() }, nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDecimal(logger *zap.Logger, key, fallback string) decimal.Decimal {
	raw := envOr(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Fatal("invalid decimal in environment",
			zap.String("key", key), zap.String("value", raw))
	}
	return d
}
