/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the timesheet engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Pick a storage backend (postgres > sqlite > memory)
  3. Parse the tenant calendar configuration
  4. Create the domain service and API handler
  5. Start the server with graceful shutdown

CONFIGURATION (environment, TS_ prefix):
  TS_PORT             HTTP server port (default: 8080)
  TS_DB_PATH          SQLite database path; ":memory:" for in-memory
  TS_DATABASE_URL     PostgreSQL connection string; overrides TS_DB_PATH
  TS_TENANT_CALENDAR  JSON calendar config (see factory package docs)

  With neither TS_DATABASE_URL nor TS_DB_PATH set, the server runs on
  the in-memory store. Fine for demos, state is lost on restart.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit

EXAMPLES:
  # Run with a file database
  TS_DB_PATH=./data/timesheet.db ./server

  # Run against PostgreSQL with a 21st-of-month closing boundary
  TS_DATABASE_URL=postgres://localhost/timesheet \
  TS_TENANT_CALENDAR='{"tenant_id":"...","monthly_period":{"start_day":21}}' ./server

SEE ALSO:
  - api/server.go: router configuration
  - store/: the three backend implementations
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/factory"
	"github.com/warp/timesheet-engine/store/memory"
	"github.com/warp/timesheet-engine/store/postgres"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// Config is the environment configuration, TS_ prefixed.
type Config struct {
	Port           int    `default:"8080"`
	DBPath         string `envconfig:"DB_PATH"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	TenantCalendar string `envconfig:"TENANT_CALENDAR" default:"{\"tenant_id\":\"00000000-0000-0000-0000-000000000001\"}"`
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ts", &cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	// Storage backend
	var (
		uow     timesheet.UnitOfWork
		cleanup func()
	)
	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		store := postgres.New(pool)
		if err := store.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		uow = store
		cleanup = pool.Close
		log.Printf("Using PostgreSQL storage")
	case cfg.DBPath != "":
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		uow = store
		cleanup = func() { store.Close() }
		log.Printf("Using SQLite storage at %s", cfg.DBPath)
	default:
		uow = memory.New()
		cleanup = func() {}
		log.Printf("Using in-memory storage (state is lost on restart)")
	}
	defer cleanup()

	// Tenant calendar
	cal, err := factory.NewPatternFactory().Parse(cfg.TenantCalendar)
	if err != nil {
		log.Fatalf("Failed to parse tenant calendar: %v", err)
	}

	// Wire domain and transport
	handler := api.NewHandler(timesheet.NewService(uow), cal)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
