package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pipeline-dashboard-go/internal/backend"
	"pipeline-dashboard-go/internal/config"
	"pipeline-dashboard-go/internal/database"
	"pipeline-dashboard-go/internal/dispatcher"
	"pipeline-dashboard-go/internal/filter"
	"pipeline-dashboard-go/internal/logger"
	"pipeline-dashboard-go/internal/notify"
	"pipeline-dashboard-go/internal/poller"
	"pipeline-dashboard-go/internal/server"
	"pipeline-dashboard-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded")

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("Dashboard stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Dashboard has been shut down.")
	_ = log.Sync()
}

// run wires the dashboard and blocks until ctx is cancelled or a component
// fails.
func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st := store.New(log)

	g, gctx := errgroup.WithContext(ctx)

	// Restore the last snapshot so the dashboard has data before the first poll
	if cfg.Database.Enabled {
		db, err := database.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		snapshot := database.NewSnapshot(db, log)
		if err := snapshot.Load(st); err != nil {
			log.Error("Failed to load snapshot", zap.Error(err))
		}
		g.Go(func() error { return snapshot.Run(gctx, st) })
		log.Info("Snapshot cache enabled", zap.String("dsn", cfg.Database.DSN))
	}

	client := backend.NewRestClient(&cfg.Backend, log)
	notifier := notify.New(cfg.Notification.DisplayDuration, log)
	defer notifier.Stop()

	syncer := poller.NewSyncer(client, st, log)
	commands := dispatcher.New(client, st, notifier, log)
	srv := server.NewServer(cfg.Server, st, filter.NewEngine(st), commands, syncer, notifier, log)

	g.Go(func() error {
		return poller.New(syncer, cfg.Polling, cfg.Backend.Resources, log).Run(gctx)
	})
	g.Go(func() error { return srv.Run(gctx) })

	return g.Wait()
}
