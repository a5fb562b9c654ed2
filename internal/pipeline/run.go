package pipeline

import (
	"context"
	"fmt"
	"time"

	"tender/internal"
	"tender/internal/fileio"
)

// Client is what a run needs from the pricing API.
type Client interface {
	Searcher
	DirectoryLoader
}

type Pipeline struct {
	Client Client
	Runner Runner
	Events internal.EventSink
}

type RunOptions struct {
	InputPath  string
	OutputPath string
	Profile    *internal.ClientProfile
}

type RunStats struct {
	Requests  int
	Offers    int
	Exact     int
	Cross     int
	Unmatched int
	Ambiguous bool

	ReadMs   int64
	SearchMs int64
	ExportMs int64
}

// Run reads the input, reconciles every request and writes the report.
// Input, column and export failures are returned; API failures are not.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (RunStats, error) {
	events := p.Events
	if events == nil {
		events = internal.Discard
	}
	stats := RunStats{}

	start := time.Now()
	table, err := fileio.ReadFile(opts.InputPath)
	if err != nil {
		return stats, err
	}
	requests, ambiguous, err := ExtractRequests(table)
	if err != nil {
		return stats, err
	}
	stats.Requests = len(requests)
	stats.Ambiguous = ambiguous
	stats.ReadMs = time.Since(start).Milliseconds()
	if ambiguous {
		events.Emit(internal.Event{Kind: internal.EventWarning, Message: "several columns match the same role, the first one is used"})
	}
	events.Emit(internal.Event{Kind: internal.EventProgress, Message: fmt.Sprintf("unique requests: %d", len(requests)), Total: len(requests)})

	start = time.Now()
	dir := p.Client.LoadDirectory(ctx)
	rec := &Reconciler{Searcher: p.Client, Runner: p.Runner, Events: events}
	report, err := rec.Reconcile(ctx, requests, dir, opts.Profile)
	if err != nil {
		return stats, err
	}
	stats.SearchMs = time.Since(start).Milliseconds()

	stats.Offers = len(report.Offers)
	stats.Unmatched = len(report.Unmatched)
	for _, row := range report.Offers {
		if row.MatchGroup == internal.ExactMatch {
			stats.Exact++
		} else {
			stats.Cross++
		}
	}

	start = time.Now()
	if err := ExportReportToXLSX(report, opts.OutputPath); err != nil {
		return stats, err
	}
	stats.ExportMs = time.Since(start).Milliseconds()

	events.Emit(internal.Event{
		Kind:    internal.EventProgress,
		Message: fmt.Sprintf("report written to %s: %d offers, %d unmatched", opts.OutputPath, stats.Offers, stats.Unmatched),
	})
	return stats, nil
}
