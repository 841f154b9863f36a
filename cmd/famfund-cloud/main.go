package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/famfund/internal/cloudapi"
	"github.com/dukerupert/famfund/internal/config"
	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/docstore"
	"github.com/dukerupert/famfund/internal/logging"
)

const cleanupInterval = 5 * time.Minute

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	if err := run(*envFile); err != nil {
		slog.Error("famfund-cloud stopped", "error", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.LoadCloud()
	logger := logging.Setup(cfg.LogLevel, "famfund-cloud")
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := cloudapi.NewServer(docstore.New(db), logger)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("famfund-cloud running", "addr", "http://localhost:"+cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := srv.RateLimiter().Cleanup(); n > 0 {
					logger.Debug("rate limiter cleanup", "removed", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}
