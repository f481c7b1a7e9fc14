package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"notice_relay/internal/api"
	"notice_relay/internal/config"
	"notice_relay/internal/delivery"
	"notice_relay/internal/delivery/amqp"
	"notice_relay/internal/delivery/telegram"
	"notice_relay/internal/detector"
	"notice_relay/internal/registry"
	"notice_relay/internal/scheduler"
	"notice_relay/internal/service"
	"notice_relay/internal/source"
	"notice_relay/internal/storage/sqlstore"
)

type options struct {
	Config      string `short:"c" long:"config" env:"RELAY_CONFIG" default:"config.yaml" description:"path to config file"`
	MigrateOnly bool   `long:"migrate-only" description:"apply database migrations and exit"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = setupLogger(cfg.LogLevel)

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("relay stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options, logger *slog.Logger) error {
	db, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	version, dirty, err := sqlstore.Migrate(db)
	if err != nil {
		return err
	}
	logger.Info("database migrated", "version", version, "dirty", dirty)
	if opts.MigrateOnly {
		return nil
	}

	loc := cfg.Location()

	txManager := sqlstore.NewTransactionManager(db)
	history := sqlstore.NewHistoryStore(db)
	destinations := sqlstore.NewDestinationStore(db, txManager)

	client := source.NewClient(source.ClientConfig{
		Timeout:        cfg.HTTP.Timeout,
		UserAgent:      cfg.HTTP.UserAgent,
		MaxAttempts:    cfg.HTTP.Retry.MaxAttempts,
		InitialBackoff: cfg.HTTP.Retry.InitialBackoff,
		MaxBackoff:     cfg.HTTP.Retry.MaxBackoff,
	}, logger)

	var catalog registry.Catalog = registry.FileCatalog{Path: cfg.Catalog.Path}
	if cfg.Catalog.URL != "" {
		catalog = registry.HTTPCatalog{URL: cfg.Catalog.URL, Client: client}
	}
	reg := registry.New(catalog, client, registry.Config{
		DefaultPolicy: cfg.Detector.DefaultPolicy,
		Location:      loc,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := reg.Refresh(ctx); err != nil {
		return err
	}

	transport, closeTransport, err := newTransport(cfg, loc, logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	dispatcher := delivery.NewDispatcher(transport, delivery.Config{
		Concurrency: cfg.Delivery.Concurrency,
		RatePerSec:  cfg.Delivery.RatePerSec,
		SendTimeout: cfg.Delivery.SendTimeout,
	}, logger)

	det := detector.New(history, detector.Config{
		SnapshotWindow: cfg.Detector.SnapshotWindow,
		Location:       loc,
	})

	pipeline := service.NewPipeline(det, history, destinations, txManager, dispatcher, logger)

	window, err := scheduler.ParseWindow(cfg.Poll.ActiveHours, loc)
	if err != nil {
		return err
	}
	sched := scheduler.NewScheduler(pipeline, reg, scheduler.Config{
		Interval:          cfg.Poll.Interval,
		CycleTimeout:      cfg.Poll.CycleTimeout,
		ShutdownGrace:     cfg.Poll.ShutdownGrace,
		ReconcileInterval: cfg.Poll.ReconcileInterval,
		Window:            window,
	}, logger)

	server := api.New(reg, history, destinations, sched, cfg.API.AccessKey, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx, cfg.API.Addr)
	})
	g.Go(func() error {
		watchPath := ""
		if cfg.Catalog.Watch && cfg.Catalog.URL == "" {
			watchPath = cfg.Catalog.Path
		}
		return reg.Watch(gctx, watchPath, cfg.Catalog.RefreshInterval)
	})

	logger.Info("notice relay started",
		"sources", len(reg.List()),
		"transport", cfg.Delivery.Transport,
		"interval", cfg.Poll.Interval,
		"active_hours", window.String(),
	)
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("systemd notify failed", "error", err)
	}

	<-gctx.Done()
	logger.Info("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	return g.Wait()
}

func newTransport(cfg *config.Config, loc *time.Location, logger *slog.Logger) (delivery.Transport, func(), error) {
	switch cfg.Delivery.Transport {
	case "amqp":
		pub, err := amqp.NewRabbitMQ(amqp.Config{
			URL:       cfg.RabbitMQ.URL,
			Exchange:  cfg.RabbitMQ.Exchange,
			QueueName: cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return pub, func() { _ = pub.Close() }, nil
	default:
		tg, err := telegram.New(telegram.Config{
			Token:   cfg.Telegram.Token,
			APIURL:  cfg.Telegram.APIURL,
			Timeout: cfg.Delivery.SendTimeout,
		}, loc, logger)
		if err != nil {
			return nil, nil, err
		}
		return tg, func() {}, nil
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
