package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"explog/internal/assetcache"
	"explog/internal/cli"
	apphttp "explog/internal/http"
	"explog/internal/interaction"
	applog "explog/internal/log"
	appweb "explog/web"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, os.Stdout)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", applog.FieldOperation, applog.OpStartup, applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer app.Close()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		logger.Error("Static assets missing", applog.FieldError, err.Error())
		os.Exit(1)
	}
	assets := assetcache.New(cfg.AssetCacheVersion, static, logger.WithComponent(applog.ComponentAssets))
	if err := assets.Install(ctx, assetcache.DefaultAssets); err != nil {
		// Requests fall through to the embedded files when precaching fails.
		logger.Warn("Asset precache failed", applog.FieldError, err.Error())
	}
	if stale := assets.Activate(ctx); len(stale) > 0 {
		logger.Info("Removed stale asset caches", "generations", stale)
	}

	ctrl := interaction.NewController(app.Repo, cfg.UndoWindow, time.Now)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Repo:       app.Repo,
		Controller: ctrl,
		Assets:     assets,
		Location:   app.Location,
		Clock:      time.Now,
		Logger:     logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting explog server",
			"port", cfg.Port, "backend", cfg.DataBackend, "timezone", app.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err.Error())
		app.Close()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
