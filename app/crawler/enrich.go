package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/policy"
	"github.com/driftfeed/driftfeed/app/sources"
)

const (
	enrichTimeout  = 20 * time.Second
	maxPageSize    = 2 * 1024 * 1024
	maxExcerptSize = 500
)

// EnrichOutcome is the per-item result of a metadata enrichment attempt.
type EnrichOutcome string

const (
	OutcomeEnhanced        EnrichOutcome = "enhanced"
	OutcomeNoMetadataFound EnrichOutcome = "no_metadata_found"
	OutcomeError           EnrichOutcome = "error"
)

// EnrichResult reports what happened to one content item.
type EnrichResult struct {
	ContentID   string        `json:"content_id"`
	Outcome     EnrichOutcome `json:"outcome"`
	FieldsAdded []string      `json:"fields_added,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Enricher fetches content pages and fills in metadata the source didn't
// provide: description, image, author, publish date.
type Enricher struct {
	contentRepo  database.ContentRepository
	policyClient *policy.Client
	httpClient   *http.Client
	userAgent    string
}

func NewEnricher(contentRepo database.ContentRepository, policyClient *policy.Client,
	httpClient *http.Client, userAgent string) *Enricher {
	return &Enricher{
		contentRepo:  contentRepo,
		policyClient: policyClient,
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

// EnrichAll processes ids sequentially, pacing fetches by each domain's crawl
// delay. Failures are logged and reported per item, never propagated.
func (e *Enricher) EnrichAll(ctx context.Context, contentIDs []string) []EnrichResult {
	results := make([]EnrichResult, 0, len(contentIDs))
	for i, id := range contentIDs {
		result, domain := e.enrich(ctx, id)
		results = append(results, result)

		if result.Outcome == OutcomeError {
			slog.Debug("Enrichment failed", "content_id", id, "error", result.Error)
		}
		if i == len(contentIDs)-1 {
			break
		}

		var delay time.Duration
		if domain != "" {
			delay = e.policyClient.CrawlDelay(ctx, domain)
		}
		if ctx.Err() != nil || !sleepCtx(ctx, delay) {
			break
		}
	}

	enhanced := 0
	for _, r := range results {
		if r.Outcome == OutcomeEnhanced {
			enhanced++
		}
	}
	slog.Info("Enrichment batch finished", "total", len(results), "enhanced", enhanced)
	return results
}

// Enrich fetches one item's page and merges extracted metadata into the
// store, never overwriting existing values.
func (e *Enricher) Enrich(ctx context.Context, contentID string) EnrichResult {
	result, _ := e.enrich(ctx, contentID)
	return result
}

// enrich also reports the item's domain so batch callers can pace by it.
func (e *Enricher) enrich(ctx context.Context, contentID string) (EnrichResult, string) {
	result := EnrichResult{ContentID: contentID}

	item, err := e.contentRepo.GetItem(contentID)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result, ""
	}
	if item == nil {
		result.Outcome = OutcomeError
		result.Error = "content item not found"
		return result, ""
	}

	if !e.policyClient.IsAllowed(ctx, item.URL) {
		result.Outcome = OutcomeNoMetadataFound
		return result, item.Domain
	}

	meta, err := e.fetchMetadata(ctx, item.URL)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result, item.Domain
	}

	var fields []string
	if item.Description == "" && meta.description != "" {
		fields = append(fields, "description")
	}
	if item.ImageURL == "" && meta.imageURL != "" {
		fields = append(fields, "image_url")
	}
	if item.Author == "" && meta.author != "" {
		fields = append(fields, "author")
	}
	if item.PublishedAt == nil && meta.publishedAt != nil {
		fields = append(fields, "published_at")
	}

	if len(fields) == 0 {
		result.Outcome = OutcomeNoMetadataFound
		return result, item.Domain
	}

	err = e.contentRepo.UpdateMetadata(contentID, meta.description, meta.imageURL, meta.author, meta.publishedAt)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result, item.Domain
	}

	result.Outcome = OutcomeEnhanced
	result.FieldsAdded = fields
	return result, item.Domain
}

type pageMetadata struct {
	description string
	imageURL    string
	author      string
	publishedAt *time.Time
}

func (e *Enricher) fetchMetadata(ctx context.Context, pageURL string) (*pageMetadata, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	return e.extractMetadata(data, pageURL, resp.Header.Get("Content-Type")), nil
}

func (e *Enricher) extractMetadata(data []byte, pageURL, contentType string) *pageMetadata {
	meta := &pageMetadata{}

	reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		reader = bytes.NewReader(data)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return meta
	}

	meta.description = firstAttr(doc,
		`meta[property="og:description"]`, `meta[name="description"]`, `meta[name="twitter:description"]`)
	meta.imageURL = firstAttr(doc,
		`meta[property="og:image"]`, `meta[name="twitter:image"]`)
	meta.author = firstAttr(doc,
		`meta[name="author"]`, `meta[property="article:author"]`)

	if published := firstAttr(doc, `meta[property="article:published_time"]`); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			meta.publishedAt = &t
		}
	}

	// readability fallback: the article excerpt stands in for a missing
	// meta description
	if meta.description == "" {
		if article, err := readability.FromReader(bytes.NewReader(data), nil); err == nil {
			meta.description = sources.CleanText(article.Excerpt, maxExcerptSize)
		}
	}
	meta.description = sources.CleanText(meta.description, maxExcerptSize)

	return meta
}

func firstAttr(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if value := strings.TrimSpace(doc.Find(selector).First().AttrOr("content", "")); value != "" {
			return value
		}
	}
	return ""
}
