package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tender/internal/config"
	"tender/internal/jobs"
	"tender/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := config.SetupLogger(cfg, "tender-worker")

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	runner := jobs.NewRunner(db, cfg, logger)
	worker := jobs.NewWorker(db, runner, time.Duration(cfg.WorkerIntervalSec)*time.Second, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().Int("intervalSec", cfg.WorkerIntervalSec).Msg("worker starting")
	must(worker.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
