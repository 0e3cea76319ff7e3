// Command explog-export writes the stored expenses to a dated CSV file
// without starting a UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"explog/internal/cli"
	"explog/internal/export"
	applog "explog/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	dir := flag.String("dir", cfg.ExportDir, "directory to write the CSV into")
	stdout := flag.Bool("stdout", false, "write the CSV to stdout instead of a file")
	flag.Parse()

	logger := cli.SetupLogger(cfg, os.Stderr).WithComponent(applog.ComponentExport)

	app, err := cli.Bootstrap(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Startup failed", applog.FieldOperation, applog.OpStartup, applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer app.Close()

	records := app.Repo.List()
	if *stdout {
		err = export.WriteCSV(os.Stdout, records, app.Location)
	} else {
		var path string
		path, err = export.WriteFile(*dir, records, time.Now().In(app.Location))
		if err == nil {
			fmt.Println(path)
		}
	}

	switch {
	case errors.Is(err, export.ErrNothingToExport):
		logger.Warn("No expenses to export", applog.FieldOperation, applog.OpExport)
		app.Close()
		os.Exit(2)
	case err != nil:
		logger.Error("Export failed", applog.FieldOperation, applog.OpExport, applog.FieldError, err.Error())
		app.Close()
		os.Exit(1)
	}
	logger.Info("Export complete", applog.FieldOperation, applog.OpExport, applog.FieldCount, len(records))
}
