package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tender/internal"
	"tender/internal/util"
)

const (
	progressEvery   = 20
	unmatchedReason = "no offers or API error"
)

// Searcher returns the offers for one request; failures come back as empty.
type Searcher interface {
	Search(ctx context.Context, req internal.TenderRequest, profileID string) []internal.Offer
}

// DirectoryLoader loads the distributor directory; failures come back as empty.
type DirectoryLoader interface {
	LoadDirectory(ctx context.Context) internal.Directory
}

// Runner calls fn for every index in [0, n).
type Runner interface {
	Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error
}

// SequentialRunner handles one request at a time, in order.
type SequentialRunner struct{}

func (SequentialRunner) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	for i := 0; i < n; i++ {
		fn(ctx, i)
	}
	return nil
}

// PoolRunner fans requests out to at most Workers goroutines.
type PoolRunner struct {
	Workers int
}

func (p PoolRunner) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	return g.Wait()
}

// NewRunner picks the sequential runner for one worker and a pool otherwise.
func NewRunner(workers int) Runner {
	if workers <= 1 {
		return SequentialRunner{}
	}
	return PoolRunner{Workers: workers}
}

type requestOutcome struct {
	rows      []internal.ClassifiedRow
	unmatched *internal.UnmatchedRequest
}

// Reconciler runs the batch loop: search, extract, classify per request.
type Reconciler struct {
	Searcher Searcher
	Runner   Runner
	Events   internal.EventSink
}

// ProfileLabel is the profile display name without its "(profileId=...)" suffix.
func ProfileLabel(profile *internal.ClientProfile) string {
	if profile == nil {
		return ""
	}
	return util.StripTrailingParenthetical(profile.String())
}

// Reconcile processes every request and returns the sorted report. Outcomes
// are collected by request index, so the result does not depend on the runner.
func (r *Reconciler) Reconcile(ctx context.Context, requests []internal.TenderRequest, dir internal.Directory, profile *internal.ClientProfile) (internal.Report, error) {
	events := r.Events
	if events == nil {
		events = internal.Discard
	}
	runner := r.Runner
	if runner == nil {
		runner = SequentialRunner{}
	}

	profileID := ""
	if profile != nil {
		profileID = profile.ProfileID
	}
	label := ProfileLabel(profile)

	total := len(requests)
	outcomes := make([]requestOutcome, total)
	var processed atomic.Int64

	err := runner.Each(ctx, total, func(ctx context.Context, i int) {
		req := requests[i]
		offers := r.Searcher.Search(ctx, req, profileID)
		if len(offers) == 0 {
			outcomes[i].unmatched = &internal.UnmatchedRequest{
				Brand:    req.Brand,
				Article:  req.Article,
				Quantity: req.Quantity,
				Reason:   unmatchedReason,
			}
		} else {
			rows := make([]internal.ClassifiedRow, 0, len(offers))
			for _, offer := range offers {
				rows = append(rows, Classify(ExtractRow(offer, req, dir), req, label))
			}
			outcomes[i].rows = rows
		}

		n := int(processed.Add(1))
		if n%progressEvery == 0 || n == total {
			events.Emit(internal.Event{
				Kind:      internal.EventProgress,
				Message:   fmt.Sprintf("%s %s", req.Brand, req.Article),
				Processed: n,
				Total:     total,
			})
		}
	})
	if err == nil {
		// searches under a cancelled context come back empty, not as offers
		err = ctx.Err()
	}
	if err != nil {
		return internal.Report{}, err
	}

	var rows []internal.ClassifiedRow
	var unmatched []internal.UnmatchedRequest
	for _, o := range outcomes {
		rows = append(rows, o.rows...)
		if o.unmatched != nil {
			unmatched = append(unmatched, *o.unmatched)
		}
	}
	return BuildReport(rows, unmatched), nil
}
