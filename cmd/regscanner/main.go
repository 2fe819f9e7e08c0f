package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"RegulatoryScanner/internal/app"
	"RegulatoryScanner/internal/config"
	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single aggregation and exit")
	out := flag.String("out", "", "with -once, write the merged records as JSON to this file (- for stdout)")
	flag.Parse()

	if err := run(*once, *out); err != nil {
		os.Exit(1)
	}
}

// run owns every deferred cleanup so main can exit with a status only after
// the application has been closed.
func run(once bool, out string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("application close failed", "error", cerr)
		}
	}()

	if !once {
		if err := application.Serve(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			return err
		}
		return nil
	}

	res, err := application.RunOnce(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
	}
	if out != "" && len(res.Records) > 0 {
		if werr := writeRecords(out, res.Records); werr != nil {
			logger.Error("write output failed", "path", out, "error", werr)
			return werr
		}
	}
	return err
}

func writeRecords(path string, records []domain.RegulatoryRecord) error {
	f := os.Stdout
	if path != "-" {
		created, err := os.Create(path)
		if err != nil {
			return err
		}
		defer created.Close()
		f = created
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
