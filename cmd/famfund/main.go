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

	"github.com/dukerupert/famfund/internal/alerts"
	"github.com/dukerupert/famfund/internal/backup"
	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/config"
	"github.com/dukerupert/famfund/internal/database"
	"github.com/dukerupert/famfund/internal/logging"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/push"
	"github.com/dukerupert/famfund/internal/rates"
	"github.com/dukerupert/famfund/internal/remote"
	"github.com/dukerupert/famfund/internal/server"
	"github.com/dukerupert/famfund/internal/session"
	"github.com/dukerupert/famfund/internal/store"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	vapidKeys := flag.Bool("vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *vapidKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("FAMFUND_VAPID_PUBLIC_KEY=%s\nFAMFUND_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	if err := run(*envFile); err != nil {
		slog.Error("famfund stopped", "error", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, "famfund")
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	local := store.NewLocalStore(db, cfg.Partners...)
	center := notify.NewCenter()
	defer center.Close()

	var gateway remote.Gateway
	if cfg.RemoteURL != "" {
		gateway = remote.NewClient(cfg.RemoteURL, logger.With("component", "remote"))
	}

	sessions, err := session.NewManager(gateway, local, center, logger)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	budgetStore, err := budget.NewStore(local, sessions, center, logger)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	defer budgetStore.Close()
	sessions.OnChange(budgetStore.Bind)

	ratesSvc := rates.NewService(cfg.RatesURL, budgetStore, center, logger)

	var sinks []notify.AlertSink
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.With("component", "amqp"))
		if err != nil {
			logger.Warn("AMQP unavailable, alerts stay in the app", "error", err)
		} else {
			defer amqpSink.Close()
			sinks = append(sinks, amqpSink)
		}
	}
	var pushSvc *push.Service
	if cfg.PushEnabled() {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, local, logger)
		sinks = append(sinks, pushSvc)
	}

	var offsite *backup.Offsite
	if cfg.S3Enabled() {
		offsite, err = backup.NewOffsite(cfg.S3(), local, cfg.BackupPassphrase, cfg.BackupRetention, logger)
		if err != nil {
			return fmt.Errorf("offsite backup: %w", err)
		}
	}

	sched := alerts.NewScheduler(alerts.NewEngine(local), budgetStore, sessions, center, logger, cfg.AlertInterval, sinks...)
	budgetStore.OnChange(func(budget.State) { sched.Trigger() })

	srv := server.New(server.Deps{
		Local:         local,
		Sessions:      sessions,
		Budget:        budgetStore,
		Rates:         ratesSvc,
		Notifications: center,
		Push:          pushSvc,
		Offsite:       offsite,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Every listener is registered, so resuming binds the budget to the
	// stored family and tells connected clients.
	sessions.Resume()
	sched.Start(ctx)
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("famfund running", "addr", "http://localhost:"+cfg.Port, "mode", sessions.Current().Mode, "remote", cfg.RemoteURL != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rctx, cancel := context.WithTimeout(gctx, 15*time.Second)
		defer cancel()
		if _, err := ratesSvc.Refresh(rctx); err != nil {
			logger.Warn("startup rate refresh failed, using stored rates", "error", err)
		}
		return nil
	})
	if offsite != nil {
		g.Go(func() error {
			logger.Info("offsite backups enabled", "bucket", cfg.S3Bucket, "interval", cfg.BackupInterval, "retention", cfg.BackupRetention)
			return offsite.Run(gctx, cfg.BackupInterval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}
