// Package main is the entry point for the tunebridge backend daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"tunebridge-go/application"
	"tunebridge-go/core/channel"
	"tunebridge-go/core/dispatch"
	"tunebridge-go/core/eventbus"
	"tunebridge-go/domain/settings"
	"tunebridge-go/infrastructure/config"
	"tunebridge-go/infrastructure/logging"
	"tunebridge-go/infrastructure/repository"
	"tunebridge-go/infrastructure/transport"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tunebridge:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("tunebridge", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML config file")
	listen := flags.String("listen", "", "address to serve UI connections on")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	storage := flags.String("storage", "", "settings storage driver (memory or mongodb)")
	showVersion := flags.Bool("version", false, "print the version and exit")
	printConfig := flags.Bool("print-config", false, "print the effective configuration and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = *listen
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = *logLevel
	}
	if flags.Changed("storage") {
		cfg.Storage.Driver = *storage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	// Initialize logging (dev: console only, prod: rotating file)
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	logCfg.Dir = cfg.Logging.Dir
	logCfg.AddSource = cfg.Logging.AddSource
	logCfg.JSON = cfg.Logging.Format == "json"
	logger, closeLog, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer closeLog()

	logger.Info("Starting tunebridge", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := channel.NewDefaultRegistry()
	if err != nil {
		return fmt.Errorf("invalid channel catalog: %w", err)
	}

	eventBus := eventbus.New(logger)
	defer eventBus.Close()

	dispatcher, err := dispatch.New(&dispatch.Config{
		Registry: registry,
		EventBus: eventBus,
		Timeout:  cfg.Dispatch.InvokeTimeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	store, err := openSettingsStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	backend, err := application.NewBackend(&application.Config{
		Dispatcher: dispatcher,
		Settings:   settings.NewService(store.repo, settings.DefaultValues()),
		EventBus:   eventBus,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := backend.Bind(); err != nil {
		return err
	}
	if err := backend.Start(); err != nil {
		return err
	}
	defer backend.Stop()

	server := transport.NewServer(&transport.ServerConfig{
		Dispatcher:     dispatcher,
		Path:           cfg.Server.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        version,
		HealthChecks:   store.checks,
		Logger:         logger,
	})
	if err := server.Start(ctx, cfg.Server.Listen, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}

	logger.Info("Backend shutdown complete")
	return nil
}

// settingsStore is the settings repository selected by storage.driver.
type settingsStore struct {
	repo   settings.Repository
	checks map[string]transport.HealthCheck
	close  func()
}

func openSettingsStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*settingsStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageMongoDB:
		db, err := repository.NewMongoDB(ctx, &cfg.Storage.MongoDB, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		return &settingsStore{
			repo:   repository.NewMongoSettingsRepository(db, logger),
			checks: map[string]transport.HealthCheck{"mongodb": db.Ping},
			close: func() {
				if err := db.Close(context.Background()); err != nil {
					logger.Warn("Failed to close MongoDB", "error", err)
				}
			},
		}, nil
	default:
		logger.Info("Using in-memory settings storage")
		return &settingsStore{
			repo:  repository.NewMemorySettingsRepository(),
			close: func() {},
		}, nil
	}
}
