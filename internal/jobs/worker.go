package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tender/internal"
	"tender/internal/storage"
)

const lastPollKey = "worker.lastPollAt"

// Worker polls for new jobs and runs them one at a time.
type Worker struct {
	db       *storage.DB
	runner   *Runner
	interval time.Duration
	batch    int
	logger   zerolog.Logger
}

func NewWorker(db *storage.DB, runner *Runner, interval time.Duration, logger zerolog.Logger) *Worker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Worker{db: db, runner: runner, interval: interval, batch: 10, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error().Err(err).Msg("worker cycle error")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.interval):
		}
	}
}

// RunOnce requeues stale jobs, runs every pending job and returns how many
// were picked up. Failed runs are recorded on the job and do not stop the cycle.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	if n, err := w.db.RequeueStale(w.runner.staleAfter); err != nil {
		return 0, err
	} else if n > 0 {
		w.logger.Warn().Int64("jobs", n).Msg("requeued stale in_progress jobs")
	}
	pending, err := w.db.ListJobsByStatus(internal.JobNew, w.batch)
	if err != nil {
		return 0, err
	}
	ran := 0
	for _, job := range pending {
		if ctx.Err() != nil {
			break
		}
		done, err := w.runner.Run(ctx, job.ID)
		if errors.Is(err, ErrJobBusy) {
			continue
		}
		ran++
		if err != nil && done.Status != internal.JobError {
			return ran, err
		}
	}
	_ = w.db.SetMetadata(lastPollKey, time.Now().UTC().Format(time.RFC3339))
	if ran > 0 {
		w.logger.Info().Int("jobs", ran).Msg("worker cycle done")
	}
	return ran, nil
}
