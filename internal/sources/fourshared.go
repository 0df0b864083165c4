// File-host scraper [Source] implementation
//
// Scrapes the 4shared search results page. Unlike the other two sources a
// query here usually yields several plausible files, so candidates are
// ranked with a relevance heuristic before one URL is returned.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mcunha/tunelink/internal/search"
	"github.com/mcunha/tunelink/internal/shared"
)

const defaultFourSharedBaseURL = "https://www.4shared.com"

// itemSelectors locate result containers; the first selector that matches
// anything wins.
var itemSelectors = []string{
	"div.searchItemContainer",
	"div.searchItem",
	"div.item",
	".search-item",
	".file-item",
	"tr.searchItem",
}

// linkSelectors locate the file link within a result container, most
// specific first.
var linkSelectors = []string{
	`a[href*="/file/"]`,
	`a[href*="/audio/"]`,
	`a[href*="/get/"]`,
	`a[href*="/download/"]`,
	"a.fileName",
	"a.fileLink",
}

var (
	audioHrefMarkers    = []string{"/file/", "/audio/", "/get/", "/download/", ".mp3", ".m4a", ".wav", ".flac"}
	audioTextExtensions = []string{".mp3", ".m4a", ".wav", ".flac", ".aac", ".ogg"}
	avoidHrefMarkers    = []string{"/folder/", "/album/", "/playlist/", "javascript:", "mailto:", "#"}

	// scoredExtensions and demotionTerms feed the relevance heuristic.
	scoredExtensions = []string{".mp3", ".m4a", ".wav", ".flac", ".aac"}
	demotionTerms    = []string{"remix", "karaoke", "instrumental", "cover", "live"}
)

// candidate is one scored file link, alive only while a single search call
// picks a winner.
type candidate struct {
	url       string
	title     string
	relevance float64
}

// FourSharedSource resolves queries against the file host's search endpoint.
type FourSharedSource struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFourSharedSource creates a file-host scraper rooted at baseURL.
func NewFourSharedSource(baseURL string, client *http.Client) *FourSharedSource {
	if baseURL == "" {
		baseURL = defaultFourSharedBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &FourSharedSource{
		baseURL:    baseURL,
		httpClient: client,
		attempts:   scraperAttempts,
		sleep:      shared.SleepContext,
	}
}

// Name returns the source name.
func (s *FourSharedSource) Name() string { return "4shared" }

// Available always reports true.
func (s *FourSharedSource) Available() bool { return true }

// Search scrapes the results page and returns the highest-relevance audio
// link, normalized to an absolute URL. Local retry behavior matches the
// results-page scraper: growing sleeps for transient failures, immediate
// propagation of rate limiting.
func (s *FourSharedSource) Search(ctx context.Context, q Query) (string, error) {
	if q.Text == "" {
		return "", nil
	}

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		link, err := s.searchAttempt(ctx, q)
		if err == nil && link != "" {
			return link, nil
		}

		if _, limited := RateLimited(err); limited {
			return "", err
		}

		lastErr = err
		if attempt < s.attempts-1 {
			grow := time.Duration(attempt + 1)
			wait := 1500 * time.Millisecond * grow
			if err != nil {
				wait = 2 * time.Second * grow
			}
			if serr := s.sleep(ctx, wait); serr != nil {
				return "", serr
			}
		}
	}

	return "", lastErr
}

func (s *FourSharedSource) searchAttempt(ctx context.Context, q Query) (string, error) {
	endpoint := fmt.Sprintf("%s/web/q?query=%s", s.baseURL, url.QueryEscape(q.Text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	defaultHeaders(req)
	req.Header.Set("Referer", s.baseURL+"/")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("file host request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewStatusError(resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		// Unparseable markup is a miss, not a transport failure.
		return "", nil
	}

	candidates := findAudioLinks(doc, q.Track, q.Artist)
	best, ok := selectBest(candidates)
	if !ok {
		return "", nil
	}
	return s.normalizeURL(best.url), nil
}

// findAudioLinks extracts scored file links, first via the structural
// selectors and, when none match, by scanning every hyperlink on the page.
func findAudioLinks(doc *goquery.Document, track, artist string) []candidate {
	var candidates []candidate

	for _, selector := range itemSelectors {
		items := doc.Find(selector)
		if items.Length() == 0 {
			continue
		}

		items.Each(func(_ int, item *goquery.Selection) {
			if c, ok := extractLinkFromItem(item, track, artist); ok {
				candidates = append(candidates, c)
			}
		})
		break
	}

	if len(candidates) == 0 {
		doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href := link.AttrOr("href", "")
			text := strings.TrimSpace(link.Text())

			if looksLikeAudioLink(href, text) {
				candidates = append(candidates, candidate{
					url:       href,
					title:     text,
					relevance: relevanceScore(text, track, artist),
				})
			}
		})
	}

	return candidates
}

// extractLinkFromItem pulls the most specific qualifying link out of one
// result container.
func extractLinkFromItem(item *goquery.Selection, track, artist string) (candidate, bool) {
	for _, selector := range linkSelectors {
		link := item.Find(selector).First()
		if link.Length() == 0 {
			continue
		}

		href := link.AttrOr("href", "")
		title := strings.TrimSpace(link.Text())
		if href != "" && looksLikeAudioLink(href, title) {
			return candidate{url: href, title: title, relevance: relevanceScore(title, track, artist)}, true
		}
	}

	var found candidate
	var ok bool
	item.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href := link.AttrOr("href", "")
		title := strings.TrimSpace(link.Text())

		if looksLikeAudioLink(href, title) {
			found = candidate{url: href, title: title, relevance: relevanceScore(title, track, artist)}
			ok = true
			return false
		}
		return true
	})

	return found, ok
}

// looksLikeAudioLink filters hyperlinks down to plausible audio files. A
// download-style path qualifies outright, even when the href also carries a
// fragment or folder segment; only then do folder/playlist/script links get
// rejected.
func looksLikeAudioLink(href, text string) bool {
	if href == "" {
		return false
	}

	lowerHref := strings.ToLower(href)
	for _, marker := range audioHrefMarkers {
		if strings.Contains(lowerHref, marker) {
			return true
		}
	}

	for _, marker := range avoidHrefMarkers {
		if strings.Contains(lowerHref, marker) {
			return false
		}
	}

	lowerText := strings.ToLower(text)
	for _, ext := range audioTextExtensions {
		if strings.Contains(lowerText, ext) {
			return true
		}
	}

	return len(strings.TrimSpace(text)) > 3
}

// relevanceScore ranks a link title against the requested track: +0.5 for a
// track-title substring match, +0.3 for the artist, +0.2 for a recognized
// audio extension, -0.1 per demotion term, clamped at zero.
func relevanceScore(title, track, artist string) float64 {
	if title == "" {
		return 0
	}

	normTitle := search.Normalize(title)
	normTrack := search.Normalize(track)
	normArtist := search.Normalize(artist)

	var relevance float64
	if normTrack != "" && strings.Contains(normTitle, normTrack) {
		relevance += 0.5
	}
	if normArtist != "" && strings.Contains(normTitle, normArtist) {
		relevance += 0.3
	}

	for _, ext := range scoredExtensions {
		if strings.Contains(normTitle, ext) {
			relevance += 0.2
			break
		}
	}

	for _, term := range demotionTerms {
		if strings.Contains(normTitle, term) {
			relevance -= 0.1
		}
	}

	return max(relevance, 0)
}

// selectBest picks the highest-relevance candidate, keeping the earliest on
// ties.
func selectBest(candidates []candidate) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.relevance > best.relevance {
			best = c
		}
	}
	return best, true
}

// normalizeURL rewrites protocol-relative and root-relative links against
// the provider's origin.
func (s *FourSharedSource) normalizeURL(link string) string {
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "http"):
		return link
	case strings.HasPrefix(link, "//"):
		return "https:" + link
	case strings.HasPrefix(link, "/"):
		return s.baseURL + link
	default:
		return link
	}
}
