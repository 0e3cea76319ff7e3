// Package cli provides common CLI initialization utilities.
// This package consolidates the bootstrap shared by cmd/explog,
// cmd/explog-tui and cmd/explog-export.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"explog/internal/amqp"
	"explog/internal/backend"
	"explog/internal/config"
	applog "explog/internal/log"
	"explog/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger at the configured level and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *applog.Logger {
	level, _ := cfg.Level()
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// App is the wired core shared by every front end.
type App struct {
	Config   *config.Config
	Logger   *applog.Logger
	Location *time.Location
	Repo     *services.ExpenseRepository

	cleanups []func() error
}

// Bootstrap opens the configured store, connects the optional event
// publisher and loads the persisted collection.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, Location: loc}
	if res.Cleanup != nil {
		app.cleanups = append(app.cleanups, res.Cleanup)
	}

	opts := []services.Option{
		services.WithLogger(logger.WithComponent(applog.ComponentExpense)),
		services.WithStorageKey(cfg.StorageKey),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			// Events are optional; the app keeps working without a broker.
			logger.Warn("AMQP unavailable, expense events disabled",
				applog.FieldOperation, applog.OpStartup, applog.FieldError, err.Error())
		} else {
			opts = append(opts, services.WithPublisher(client))
			app.cleanups = append(app.cleanups, client.Close)
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}

	app.Repo = services.NewExpenseRepository(res.Store, opts...)
	app.Repo.Load(ctx)
	logger.Info("Expenses loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldStorageKey, cfg.StorageKey,
		applog.FieldCount, app.Repo.Len())
	return app, nil
}

// Close releases the store and publisher in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			a.Logger.Warn("Cleanup failed", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err.Error())
		}
	}
	a.cleanups = nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
