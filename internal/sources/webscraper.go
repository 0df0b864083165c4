// Results-page scraper [Source] implementation
//
// HTML-scrape fallback for the same provider the catalog search fronts. The
// results page embeds its data as a JSON blob; the first valid video
// identifier found inside it wins.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mcunha/tunelink/internal/shared"
)

const (
	defaultResultsBaseURL = "https://www.youtube.com"
	scraperAttempts       = 2
	maxSearchDepth        = 10
	maxResultsPageBytes   = 8 << 20
)

var jsonBlob = jsoniter.ConfigCompatibleWithStandardLibrary

// The blob shows up under one of two embedding patterns depending on the
// page variant served.
var initialDataRes = []*regexp.Regexp{
	regexp.MustCompile(`(?s)var ytInitialData = (\{.*?\});`),
	regexp.MustCompile(`(?s)window\["ytInitialData"\] = (\{.*?\});`),
}

// WebSource scrapes the provider's results page for the first embedded video
// identifier. It retries transient page-load failures a small fixed number
// of times on its own, separate from the engine-level backoff.
type WebSource struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewWebSource creates a results-page scraper rooted at baseURL.
func NewWebSource(baseURL string, client *http.Client) *WebSource {
	if baseURL == "" {
		baseURL = defaultResultsBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WebSource{
		baseURL:    baseURL,
		httpClient: client,
		attempts:   scraperAttempts,
		sleep:      shared.SleepContext,
	}
}

// Name returns the source name.
func (s *WebSource) Name() string { return "web" }

// Available always reports true; the scraper has no construction-time
// dependency to probe.
func (s *WebSource) Available() bool { return true }

// Search fetches the results page and extracts the first valid video
// identifier from the embedded JSON blob. Rate-limit responses propagate
// immediately so the engine can slow the whole run down; other transport
// errors are retried locally with a growing sleep before propagating.
func (s *WebSource) Search(ctx context.Context, q Query) (string, error) {
	if q.Text == "" {
		return "", nil
	}

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		watchURL, err := s.searchAttempt(ctx, q.Text)
		if err == nil && watchURL != "" {
			return watchURL, nil
		}

		if _, limited := RateLimited(err); limited {
			return "", err
		}

		lastErr = err
		if attempt < s.attempts-1 {
			grow := time.Duration(attempt+1)
			if err != nil {
				if serr := s.sleep(ctx, 2*grow*time.Second); serr != nil {
					return "", serr
				}
			} else if serr := s.sleep(ctx, grow*time.Second); serr != nil {
				return "", serr
			}
		}
	}

	return "", lastErr
}

func (s *WebSource) searchAttempt(ctx context.Context, text string) (string, error) {
	endpoint := fmt.Sprintf("%s/results?search_query=%s&hl=en&gl=US", s.baseURL, url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	defaultHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("results page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewStatusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultsPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read results page: %w", err)
	}

	data, ok := extractInitialData(body)
	if !ok {
		return "", nil
	}

	if id := findVideoID(data, maxSearchDepth); id != "" {
		return WatchURL(id), nil
	}
	return "", nil
}

// extractInitialData locates and decodes the embedded JSON blob. Any parse
// failure yields a miss rather than an error.
func extractInitialData(html []byte) (any, bool) {
	for _, re := range initialDataRes {
		match := re.FindSubmatch(html)
		if match == nil {
			continue
		}

		var data any
		if err := jsonBlob.Unmarshal(match[1], &data); err != nil {
			continue
		}
		return data, true
	}
	return nil, false
}

// findVideoID walks a decoded JSON value looking for the first "videoId"
// field that holds a valid identifier. Depth is bounded so pathological
// structures cannot recurse without limit; object keys are visited in sorted
// order to keep the walk deterministic.
func findVideoID(data any, depth int) string {
	if depth <= 0 {
		return ""
	}

	switch v := data.(type) {
	case map[string]any:
		if id, ok := v["videoId"].(string); ok && isValidVideoID(id) {
			return id
		}

		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if id := findVideoID(v[k], depth-1); id != "" {
				return id
			}
		}
	case []any:
		for _, item := range v {
			if id := findVideoID(item, depth-1); id != "" {
				return id
			}
		}
	}

	return ""
}
