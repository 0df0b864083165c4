// Catalog [Source] implementation
//
// Communicates with a ytmusicapi proxy server exposing song-metadata search.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	defaultCatalogBaseURL = "http://localhost:8080"
	catalogResultLimit    = 5
)

// avoidResultTypes disqualify a catalog hit outright.
var avoidResultTypes = []string{"playlist", "album", "artist", "interview", "documentary"}

// avoidTitleTerms disqualify hits whose title marks them as non-music.
var avoidTitleTerms = []string{"interview", "documentary", "behind the scenes", "making of"}

// catalogResult is one hit from the proxy's /api/search endpoint.
type catalogResult struct {
	VideoID    string `json:"videoId"`
	Title      string `json:"title"`
	ResultType string `json:"resultType"`
	Category   string `json:"category"`
}

// CatalogSource resolves queries against the authoritative song-metadata
// search. Availability is decided once at construction: when the backing
// proxy cannot be reached the source answers every search with a miss and
// never touches the network.
type CatalogSource struct {
	baseURL    string
	httpClient *http.Client
	available  bool
	logger     *log.Logger
}

// NewCatalogSource creates a catalog source backed by the proxy at baseURL,
// probing its health endpoint to decide availability.
func NewCatalogSource(baseURL string, client *http.Client, logger *log.Logger) *CatalogSource {
	if baseURL == "" {
		baseURL = defaultCatalogBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	s := &CatalogSource{baseURL: baseURL, httpClient: client, logger: logger}
	s.available = s.healthy()
	if !s.available && logger != nil {
		logger.Warn("catalog search unavailable, relying on scraper fallbacks", "url", baseURL)
	}
	return s
}

// Name returns the source name.
func (s *CatalogSource) Name() string { return "catalog" }

// Available reports whether the backing proxy answered the construction-time
// health probe.
func (s *CatalogSource) Available() bool { return s.available }

func (s *CatalogSource) healthy() bool {
	req, err := http.NewRequest(http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Search runs a songs-filtered lookup first and falls back to an unfiltered
// one, accepting the first hit that qualifies as an actual song or video.
func (s *CatalogSource) Search(ctx context.Context, q Query) (string, error) {
	if !s.available || q.Text == "" {
		return "", nil
	}

	for _, filter := range []string{"songs", ""} {
		results, err := s.query(ctx, q.Text, filter)
		if err != nil {
			return "", err
		}

		for _, r := range results {
			if isMusicResult(r) {
				return WatchURL(r.VideoID), nil
			}
		}
	}

	return "", nil
}

func (s *CatalogSource) query(ctx context.Context, text, filter string) ([]catalogResult, error) {
	endpoint := fmt.Sprintf("%s/api/search?q=%s&limit=%d", s.baseURL, url.QueryEscape(text), catalogResultLimit)
	if filter != "" {
		endpoint += "&filter=" + filter
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewStatusError(resp)
	}

	var results []catalogResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		// Malformed payloads count as a miss, not a transport failure.
		return nil, nil
	}
	return results, nil
}

// isMusicResult applies the acceptance rule: songs and videos qualify,
// playlists, albums, artist pages and documentary-style content do not.
func isMusicResult(r catalogResult) bool {
	if r.VideoID == "" {
		return false
	}

	title := strings.ToLower(r.Title)
	resultType := strings.ToLower(r.ResultType)
	category := strings.ToLower(r.Category)

	if resultType == "song" || resultType == "video" || category == "songs" || category == "music" {
		return true
	}

	for _, term := range avoidResultTypes {
		if strings.Contains(resultType, term) {
			return false
		}
	}
	for _, term := range avoidTitleTerms {
		if strings.Contains(title, term) {
			return false
		}
	}

	return true
}
