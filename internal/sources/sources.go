// package sources implements the lookup strategies that turn a search string
// into a candidate audio URL.
//
// Every provider sits behind the [Source] interface so the resolution engine
// can try them in a fixed priority order: catalog search first, results-page
// scraping second, the file host last.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

// Query carries one search variant plus the raw track metadata some sources
// need for relevance ranking.
type Query struct {
	Text   string // normalized search string
	Track  string // raw track title
	Artist string // raw artist name
}

// Source is a single lookup strategy.
//
// Search returns the candidate URL, an empty string when the provider has no
// usable match, and an error only for transport-level failures. Parse and
// format problems are a miss, not an error.
type Source interface {
	Search(ctx context.Context, q Query) (string, error)
	Name() string

	// Available reports whether the source can serve searches at all.
	// Unavailable sources are skipped without a network call.
	Available() bool
}

// StatusError is returned when a provider answers with a non-2xx response.
type StatusError struct {
	Code       int
	RetryAfter string // raw Retry-After header, empty when absent
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// NewStatusError builds a [StatusError] from an HTTP response, capturing the
// Retry-After header for rate-limited replies.
func NewStatusError(resp *http.Response) *StatusError {
	return &StatusError{
		Code:       resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}
}

// RateLimited reports whether err is a 429 response, returning the
// provider-supplied Retry-After value when present.
func RateLimited(err error) (retryAfter string, ok bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return se.RetryAfter, true
	}
	return "", false
}

var watchURLRe = regexp.MustCompile(`^https://www\.youtube\.com/watch\?v=.{11}`)

// IsWatchURL reports whether url has the canonical watch-URL shape.
func IsWatchURL(url string) bool {
	return url != "" && watchURLRe.MatchString(url)
}

// WatchURL builds the canonical watch URL for a video identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

var videoIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// isValidVideoID reports whether id looks like an 11-character video
// identifier.
func isValidVideoID(id string) bool {
	return len(id) == 11 && videoIDRe.MatchString(id)
}

// defaultHeaders mimic a desktop browser; both scraped providers serve
// different markup to unknown agents.
func defaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
}
