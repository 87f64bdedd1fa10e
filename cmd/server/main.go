package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/vytor/flashdeck/internal/api"
	"github.com/vytor/flashdeck/internal/baseline"
	"github.com/vytor/flashdeck/internal/clock"
	"github.com/vytor/flashdeck/internal/config"
	"github.com/vytor/flashdeck/internal/db"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/repository/sqlite"
	"github.com/vytor/flashdeck/internal/services"
)

func main() {
	cfg := config.Load()
	cfg.BindFlags(pflag.CommandLine)
	pflag.Parse()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(cfg.LogColors),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(2)
	}

	log.Info("flashdeck starting (log level %s)", log.Level())
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("decks_dir=%s", cfg.DecksDir)
	log.Debug("use_srs=%t", cfg.UseSRS)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	catalog, err := baseline.LoadCatalog(cfg.DecksDir)
	if err != nil {
		log.Error("failed to load decks: %v", err)
		os.Exit(1)
	}

	study := services.NewStudyService(
		catalog,
		sqlite.NewCardStateRepository(database.DB),
		sqlite.NewSessionLogRepository(database.DB),
		clock.System{},
		cfg.UseSRS,
	)
	srv := api.NewServer(study, database)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Flush any open review session before the database closes.
	study.Close(shutdownCtx)

	log.Info("flashdeck stopped")
}
