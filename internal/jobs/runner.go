// Package jobs runs tender jobs end to end and maps the outcome onto the
// job's status and log.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tender/internal"
	"tender/internal/abcp"
	"tender/internal/config"
	"tender/internal/fileio"
	"tender/internal/pipeline"
	"tender/internal/storage"
)

// ErrJobBusy is returned when the job is already in progress.
var ErrJobBusy = errors.New("job is already in progress")

// ClientFactory builds the pricing API client for one run.
type ClientFactory func(cfg config.ABCPConfig, events internal.EventSink) pipeline.Client

type Runner struct {
	db         *storage.DB
	cfg        config.Config
	logger     zerolog.Logger
	newClient  ClientFactory
	staleAfter time.Duration
}

func NewRunner(db *storage.DB, cfg config.Config, logger zerolog.Logger) *Runner {
	return &Runner{
		db:     db,
		cfg:    cfg,
		logger: logger,
		newClient: func(c config.ABCPConfig, events internal.EventSink) pipeline.Client {
			return abcp.NewClient(c, events)
		},
		staleAfter: time.Duration(cfg.JobStaleMin) * time.Minute,
	}
}

// ResultPath is where the report of job id is written.
func ResultPath(outputDir string, id int64) string {
	return filepath.Join(outputDir, "tender_results", fmt.Sprintf("job_%d_abcp_result.xlsx", id))
}

// Run executes one job. The job row always ends in done or error with the
// run log appended; the returned error is the run-level failure, if any.
func (r *Runner) Run(ctx context.Context, jobID int64) (internal.TenderJob, error) {
	job, err := r.db.MustJob(jobID)
	if err != nil {
		return internal.TenderJob{}, err
	}
	claimed, err := r.db.ClaimJob(jobID, r.staleAfter)
	if err != nil {
		return job, err
	}
	if !claimed {
		return job, ErrJobBusy
	}

	traceID := uuid.NewString()
	logger := r.logger.With().Int64("job", jobID).Str("trace", traceID).Logger()
	runLog := &internal.RunLog{}
	events := internal.MultiSink{runLog, internal.LogSink{Logger: logger}}

	start := time.Now()
	runLog.Append(fmt.Sprintf("start: job %d, trace %s, input %s", jobID, traceID, filepath.Base(job.InputPath)))

	stats, runErr := r.execute(ctx, job, events)
	counts := map[string]int{
		"requests":  stats.Requests,
		"offers":    stats.Offers,
		"exact":     stats.Exact,
		"cross":     stats.Cross,
		"unmatched": stats.Unmatched,
	}
	timings := map[string]float64{
		"readMs":   float64(stats.ReadMs),
		"searchMs": float64(stats.SearchMs),
		"exportMs": float64(stats.ExportMs),
		"totalMs":  float64(time.Since(start).Milliseconds()),
	}

	status := internal.JobDone
	var resultPath *string
	if runErr != nil {
		status = internal.JobError
		msg := describe(runErr)
		runLog.Append(msg)
		logger.Error().Err(runErr).Msg("job failed")
	} else {
		path := ResultPath(r.cfg.OutputDir, jobID)
		resultPath = &path
		runLog.Append(fmt.Sprintf("OK: result saved to %s", path))
		logger.Info().Str("result", path).Int("requests", stats.Requests).Int("unmatched", stats.Unmatched).Msg("job done")
	}

	if err := r.db.FinishJob(jobID, status, resultPath, job.Log+runLog.String()); err != nil {
		return job, err
	}
	if err := r.db.InsertRun(traceID, jobID, timings, counts); err != nil {
		logger.Warn().Err(err).Msg("run stats not saved")
	}

	updated, err := r.db.MustJob(jobID)
	if err != nil {
		return job, err
	}
	return updated, runErr
}

func (r *Runner) execute(ctx context.Context, job internal.TenderJob, events internal.EventSink) (pipeline.RunStats, error) {
	abcpCfg, err := r.cfg.ABCP()
	if err != nil {
		return pipeline.RunStats{}, err
	}
	profile, err := r.db.GetProfile(job.ProfileID)
	if err != nil {
		return pipeline.RunStats{}, err
	}
	if profile == nil {
		return pipeline.RunStats{}, fmt.Errorf("client profile %d not found", job.ProfileID)
	}
	events.Emit(internal.Event{Kind: internal.EventProgress, Message: "profile: " + profile.String()})

	p := &pipeline.Pipeline{
		Client: r.newClient(abcpCfg, events),
		Runner: pipeline.NewRunner(r.cfg.Workers),
		Events: events,
	}
	return p.Run(ctx, pipeline.RunOptions{
		InputPath:  job.InputPath,
		OutputPath: ResultPath(r.cfg.OutputDir, job.ID),
		Profile:    profile,
	})
}

func describe(err error) string {
	var cfgErr *config.ConfigError
	var inputErr *fileio.InputError
	var columnErr *pipeline.ColumnDetectionError
	var exportErr *pipeline.ExportError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run interrupted: " + err.Error()
	case errors.As(err, &cfgErr):
		return "configuration error: " + err.Error()
	case errors.As(err, &inputErr), errors.As(err, &columnErr):
		return "input error: " + err.Error()
	case errors.As(err, &exportErr):
		return "export error: " + err.Error()
	default:
		return "run failed: " + err.Error()
	}
}
