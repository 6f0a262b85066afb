/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (INVENTORY_* environment, then flags)
  2. Build the logger
  3. Open the record store for the configured driver
  4. Create service, API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port
  -driver  Record store: sqlite, memory, postgres
  -db      SQLite database path. Use ":memory:" for an in-memory database

ENVIRONMENT:
  See config/config.go. Everything is prefixed with INVENTORY_, e.g.
  INVENTORY_DB_DRIVER, INVENTORY_PG_DSN, INVENTORY_REFERENCES.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (INVENTORY_SHUTDOWN_TIMEOUT)
  3. Close the store
  4. Exit

EXAMPLES:
  ./server -db="./data/inventory.db"
  ./server -driver=memory -port=3000
  INVENTORY_DB_DRIVER=postgres INVENTORY_PG_DSN=postgres://localhost/inventory ./server
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/stock-ledger/api"
	"github.com/warp/stock-ledger/config"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/inventory/store"
	"github.com/warp/stock-ledger/logging"
	"github.com/warp/stock-ledger/store/postgres"
	"github.com/warp/stock-ledger/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New(logging.Options{Env: "development"})
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	driver := flag.String("driver", cfg.DBDriver, "Record store: sqlite, memory, postgres")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port, cfg.DBDriver, cfg.DBPath = *port, *driver, *dbPath

	log := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	policy, _ := cfg.Policy()
	strategy, _ := cfg.Strategy()

	s, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open store")
	}
	defer s.Close()

	svc := inventory.NewService(s, strategy, policy, log)
	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		Production:     cfg.IsProduction(),
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("driver", cfg.DBDriver).
			Str("references", string(policy.References)).
			Str("strategy", string(strategy)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (inventory.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.PGDSN)
	default:
		return sqlite.New(cfg.DBPath)
	}
}
