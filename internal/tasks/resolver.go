package tasks

import (
	"context"

	"github.com/mcunha/tunelink/internal/search"
	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/sources"
)

// Resolve looks one track up across every query variant and source,
// short-circuiting on the first usable match.
//
// Exactly one terminal counter is recorded per call. Tracks whose metadata
// yields no variants are recorded as errors without touching the network.
func (e *SearchEngine) Resolve(ctx context.Context, req TrackRequest) SearchResult {
	result := SearchResult{
		Index:  req.Index,
		Track:  req.Track,
		Artist: req.Artist,
		Status: StatusNotFound,
	}

	variants := search.Variants(req.Track, req.Artist)
	if len(variants) == 0 {
		e.logger.Warn("no searchable variants", "index", req.Index, "track", req.Track)
		e.stats.record(outcomeError)
		result.Status = StatusError
		return result
	}

	for i, variant := range variants {
		q := sources.Query{Text: variant, Track: req.Track, Artist: req.Artist}

		for _, ps := range e.sources {
			if ps.source == nil || !ps.source.Available() {
				continue
			}

			url := e.retrier.Do(ctx, func() (string, error) {
				return ps.source.Search(ctx, q)
			})
			if url == "" {
				continue
			}
			if ps.kind == kindYouTube && !sources.IsWatchURL(url) {
				e.logger.Debug("discarding malformed watch URL", "source", ps.source.Name(), "url", url)
				continue
			}

			switch ps.kind {
			case kindYouTube:
				result.YouTubeURL = url
				e.stats.record(outcomeYouTube)
			case kindFourShared:
				result.FourSharedURL = url
				e.stats.record(outcomeFourShared)
			}

			result.Status = StatusFound
			e.logger.Debug("track resolved", "index", req.Index, "source", ps.source.Name(), "variant", i+1)
			return result
		}

		// Half the adaptive delay between variants, skipped after the last.
		if i < len(variants)-1 {
			if err := shared.SleepContext(ctx, e.retrier.Delay()/2); err != nil {
				break
			}
		}
	}

	e.stats.record(outcomeNotFound)
	return result
}

// resolveSafe converts a panicking resolution into a terminal error result
// so a single bad track can never abort the run or skew the counters.
func (e *SearchEngine) resolveSafe(ctx context.Context, req TrackRequest) (res SearchResult) {
	defer func() {
		if cause := recover(); cause != nil {
			e.logger.Error("track resolution panicked", "index", req.Index, "cause", cause)
			e.stats.record(outcomeError)
			res = SearchResult{
				Index:  req.Index,
				Track:  req.Track,
				Artist: req.Artist,
				Status: StatusError,
			}
		}
	}()

	return e.Resolve(ctx, req)
}
