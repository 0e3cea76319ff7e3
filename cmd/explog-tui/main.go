package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"explog/internal/cli"
	"explog/internal/interaction"
	applog "explog/internal/log"
	"explog/internal/tui"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	// The terminal belongs to the UI; logs go to debug.log only when asked for.
	var out io.Writer = io.Discard
	if cfg.LogLevel == "debug" {
		f, err := os.OpenFile("debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open debug.log:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logger := cli.SetupLogger(cfg, out).WithComponent(applog.ComponentTUI)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "explog:", err)
		os.Exit(1)
	}
	defer app.Close()

	ctrl := interaction.NewController(app.Repo, cfg.UndoWindow, time.Now)
	model := tui.New(ctx, app.Repo, ctrl, tui.Options{
		Location:  app.Location,
		Clock:     time.Now,
		ExportDir: cfg.ExportDir,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error("TUI exited with error", applog.FieldError, err.Error())
		fmt.Fprintln(os.Stderr, "explog:", err)
		os.Exit(1)
	}
}
