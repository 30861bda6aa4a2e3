package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/config"
	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/logging"
	"github.com/kestrelhouse/chorekeep/internal/server"
	"github.com/kestrelhouse/chorekeep/internal/store"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	format := "text"
	if cfg.LogJSON {
		format = "json"
	}
	logging.Setup(cfg.LogLevel, format)
	logger := slog.Default()

	st, err := store.Open(cfg.DataDir, logger.With("component", "store"))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	db, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		log.Fatalf("open history: %v", err)
	}
	defer db.Close()
	hist := history.NewStore(db)

	srv := server.New(cfg, st, hist, version, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)
	defer srv.Stop()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("chorekeep listening", "port", cfg.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
