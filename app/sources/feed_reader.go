package sources

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

const maxDescriptionLength = 500

var tagRe = regexp.MustCompile(`<[^>]*>`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// FeedReader parses RSS/Atom/JSON syndication feeds into candidates.
type FeedReader struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

func NewFeedReader(httpClient *http.Client, userAgent string) *FeedReader {
	return &FeedReader{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

// ParseFeed fetches and parses a feed, dropping entries without a link
// target. Descriptions are stripped of markup and truncated.
func (r *FeedReader) ParseFeed(ctx context.Context, feedURL string) ([]Candidate, error) {
	data, err := fetchURL(ctx, r.httpClient, feedURL, r.userAgent)
	if err != nil {
		return nil, &ReadError{URL: feedURL, Err: err}
	}

	feed, err := r.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ReadError{URL: feedURL, Err: fmt.Errorf("failed to parse feed: %w", err)}
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		candidate := Candidate{
			URL:         item.Link,
			Title:       CleanText(item.Title, 0),
			Description: CleanText(item.Description, maxDescriptionLength),
		}
		if item.PublishedParsed != nil {
			candidate.LastModified = item.PublishedParsed
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// CleanText strips markup, decodes entities, collapses whitespace and
// truncates to maxLen runes (0 means no limit).
func CleanText(s string, maxLen int) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))

	if maxLen > 0 {
		runes := []rune(s)
		if len(runes) > maxLen {
			s = string(runes[:maxLen])
		}
	}
	return s
}

func fetchURL(ctx context.Context, client *http.Client, rawURL, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
