// package tasks implements the track resolution engine.
//
// The core abstraction is SearchEngine, which resolves every track of a run
// against the lookup sources in a fixed priority order (catalog search, then
// the results-page scraper, then the file host) and reports progress through
// a synchronous callback after each track.
package tasks

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/sources"
)

// Status classifies the terminal outcome of one track's resolution.
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// TrackRequest identifies one row of the input table. Index is the stable
// handle used to write the outcome back into the original ordered collection
// and never changes after construction.
type TrackRequest struct {
	Index  int
	Track  string
	Artist string
}

// Label returns the "<track> - <artist>" form used in progress reporting.
func (t TrackRequest) Label() string {
	return t.Track + " - " + t.Artist
}

// SearchResult is the terminal outcome for one TrackRequest. At most one of
// the URL fields is set, and only when Status is StatusFound. Results are
// never updated after being returned.
type SearchResult struct {
	Index         int
	Track         string
	Artist        string
	YouTubeURL    string
	FourSharedURL string
	Status        Status
}

// RunStats holds the aggregate counters for one run. The counters only grow,
// and TotalSongs always equals the sum of the four terminal counters.
type RunStats struct {
	TotalSongs      int
	YouTubeFound    int
	FourSharedFound int
	NotFound        int
	Errors          int
}

// ProgressFunc is invoked synchronously once per completed track with the
// completion count, the run total, a stats snapshot and the label of the
// track that just finished.
type ProgressFunc func(completed, total int, stats RunStats, lastLabel string)

// outcome enumerates the terminal counters a track can land in.
type outcome int

const (
	outcomeYouTube outcome = iota
	outcomeFourShared
	outcomeNotFound
	outcomeError
)

// statsCounter guards RunStats against concurrent workers.
type statsCounter struct {
	mu    sync.Mutex
	stats RunStats
}

// record bumps the total together with exactly one terminal counter, so
// every observable snapshot satisfies the accounting invariant.
func (c *statsCounter) record(o outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalSongs++
	switch o {
	case outcomeYouTube:
		c.stats.YouTubeFound++
	case outcomeFourShared:
		c.stats.FourSharedFound++
	case outcomeNotFound:
		c.stats.NotFound++
	case outcomeError:
		c.stats.Errors++
	}
}

func (c *statsCounter) snapshot() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// sourceKind tags which URL field and terminal counter a source feeds.
type sourceKind int

const (
	kindYouTube sourceKind = iota
	kindFourShared
)

// prioritizedSource pairs one lookup strategy with its outcome tag. The
// engine tries its sources strictly in slice order.
type prioritizedSource struct {
	source sources.Source
	kind   sourceKind
}

// SearchEngine resolves tracks to audio source URLs.
//
// One engine owns the adaptive backoff state and the run statistics, so
// rate limiting encountered on any source slows the entire run down.
type SearchEngine struct {
	sources []prioritizedSource
	retrier *Retrier
	cfg     shared.SearchConfig
	logger  *log.Logger
	stats   *statsCounter
}

// NewSearchEngine creates an engine trying catalog, web and fourshared in
// that order. Settings are clamped to their accepted ranges.
func NewSearchEngine(catalog, web, fourshared sources.Source, cfg shared.SearchConfig, logger *log.Logger) *SearchEngine {
	cfg = cfg.Clamp()
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &SearchEngine{
		sources: []prioritizedSource{
			{source: catalog, kind: kindYouTube},
			{source: web, kind: kindYouTube},
			{source: fourshared, kind: kindFourShared},
		},
		retrier: NewRetrier(cfg.DelayDuration(), cfg.MaxRetries),
		cfg:     cfg,
		logger:  logger,
		stats:   &statsCounter{},
	}
}

// Stats returns a snapshot of the engine's counters.
func (e *SearchEngine) Stats() RunStats {
	return e.stats.snapshot()
}
