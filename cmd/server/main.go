/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the meal reservation board server: configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load the YAML config
  2. Open the SQLite row store
  3. Build calendar, engine and controller; load the current week
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file path (optional)
  -listen  Listen address, overrides config (default from config: :8080)
  -db      SQLite database path, overrides config
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database
  4. Exit

SEE ALSO:
  - config/config.go: configuration file format
  - api/server.go:    router configuration
*/
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shenglong/mealboard/api"
	"github.com/shenglong/mealboard/config"
	"github.com/shenglong/mealboard/identity"
	"github.com/shenglong/mealboard/logging"
	"github.com/shenglong/mealboard/mealplan"
	"github.com/shenglong/mealboard/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	logging.Setup()
	log := slog.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cal := mealplan.NewCalendar(loc)
	cal.Cutoffs = cfg.CutoffHours()

	var issuer *identity.TokenIssuer
	var provider mealplan.IdentityProvider
	if cfg.AuthSecret != "" {
		ttl, err := cfg.TokenDuration()
		if err != nil {
			log.Error("invalid token_ttl", "error", err)
			os.Exit(1)
		}
		issuer = identity.NewTokenIssuer(cfg.AuthSecret, ttl)
		provider = identity.Context{}
	} else {
		log.Warn("no auth_secret configured; board runs in open-edit mode")
	}

	engine := mealplan.NewEngine(store, cal, log)
	ctrl := mealplan.NewController(engine, store, cal, provider, log)

	if err := ctrl.LoadWeek(context.Background(), time.Now()); err != nil {
		log.Error("failed to load current week", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(ctrl, cal, issuer)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Listen, "db", cfg.DatabasePath, "tz", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
