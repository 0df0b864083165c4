package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mcunha/tunelink/internal/shared"
)

// RunOptions carries the per-run callbacks.
type RunOptions struct {
	// Progress is invoked synchronously after every completed track.
	Progress ProgressFunc

	// OnResult receives each result the moment it is final, before the
	// progress callback, letting a driver flush partial output and recover
	// it after a mid-run abort.
	OnResult func(SearchResult)
}

// Run resolves every track in input order and returns the ordered results
// with the final counters.
//
// A track that fails never aborts the run; an empty input aborts before any
// processing starts. With Concurrency 1 tracks are processed strictly
// sequentially with the configured delay slept between them; higher settings
// fan the same work out to a bounded worker pool paced at one dispatch per
// delay interval.
func (e *SearchEngine) Run(ctx context.Context, tracks []TrackRequest, opts RunOptions) ([]SearchResult, RunStats, error) {
	if len(tracks) == 0 {
		return nil, e.stats.snapshot(), fmt.Errorf("%w: input produced no searchable rows", shared.ErrNoTracks)
	}

	e.logger.Info("starting run", "tracks", len(tracks), "concurrency", e.cfg.Concurrency)

	if e.cfg.Concurrency <= 1 {
		return e.runSequential(ctx, tracks, opts)
	}
	return e.runParallel(ctx, tracks, opts)
}

func (e *SearchEngine) runSequential(ctx context.Context, tracks []TrackRequest, opts RunOptions) ([]SearchResult, RunStats, error) {
	total := len(tracks)
	results := make([]SearchResult, 0, total)

	for i, req := range tracks {
		if err := ctx.Err(); err != nil {
			return results, e.stats.snapshot(), err
		}

		res := e.resolveSafe(ctx, req)
		results = append(results, res)

		if opts.OnResult != nil {
			opts.OnResult(res)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, total, e.stats.snapshot(), req.Label())
		}

		if i < total-1 {
			if err := shared.SleepContext(ctx, e.cfg.DelayDuration()); err != nil {
				return results, e.stats.snapshot(), err
			}
		}
	}

	return results, e.stats.snapshot(), nil
}

func (e *SearchEngine) runParallel(ctx context.Context, tracks []TrackRequest, opts RunOptions) ([]SearchResult, RunStats, error) {
	total := len(tracks)
	results := make([]SearchResult, total)

	type job struct {
		pos int
		req TrackRequest
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for range e.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := e.resolveSafe(ctx, j.req)

				mu.Lock()
				results[j.pos] = res
				completed++
				done := completed
				snap := e.stats.snapshot()
				if opts.OnResult != nil {
					opts.OnResult(res)
				}
				if opts.Progress != nil {
					opts.Progress(done, total, snap, j.req.Label())
				}
				mu.Unlock()
			}
		}()
	}

	// One dispatch per configured delay keeps the aggregate request pacing
	// of the sequential path even when several workers resolve at once.
	limiter := rate.NewLimiter(rate.Every(e.cfg.DelayDuration()), 1)

	var runErr error
dispatch:
	for i, req := range tracks {
		if err := limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		select {
		case jobs <- job{pos: i, req: req}:
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		// Slots never dispatched hold a zero Status; everything resolved so
		// far was already flushed through OnResult.
		return results, e.stats.snapshot(), runErr
	}
	return results, e.stats.snapshot(), nil
}
