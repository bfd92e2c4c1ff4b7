package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/driftfeed/driftfeed/app/classify"
	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/policy"
	"github.com/driftfeed/driftfeed/app/sources"
)

// Engine orchestrates a single source crawl: policy checks, reading the
// source, topic classification, submission to the content store, and
// asynchronous enrichment. Mutual exclusion per source and the concurrency
// ceiling are process-local; the deployment runs one active crawler.
type Engine struct {
	sourceRepo  database.SourceRepository
	jobRepo     database.CrawlJobRepository
	contentRepo database.ContentRepository
	topicRepo   database.TopicRepository

	policyClient  *policy.Client
	feedReader    *sources.FeedReader
	sitemapReader *sources.SitemapReader
	discoverer    *sources.Discoverer
	classifier    *classify.Classifier
	enricher      *Enricher

	maxConcurrent      int
	sitemapRecencyDays int

	mu      sync.Mutex
	active  int
	running map[string]context.CancelFunc

	// enrichWG lets tests wait for fire-and-forget enrichment
	enrichWG sync.WaitGroup
}

func NewEngine(sourceRepo database.SourceRepository, jobRepo database.CrawlJobRepository,
	contentRepo database.ContentRepository, topicRepo database.TopicRepository,
	policyClient *policy.Client, feedReader *sources.FeedReader,
	sitemapReader *sources.SitemapReader, discoverer *sources.Discoverer,
	classifier *classify.Classifier, enricher *Enricher,
	maxConcurrent, sitemapRecencyDays int) *Engine {
	return &Engine{
		sourceRepo:         sourceRepo,
		jobRepo:            jobRepo,
		contentRepo:        contentRepo,
		topicRepo:          topicRepo,
		policyClient:       policyClient,
		feedReader:         feedReader,
		sitemapReader:      sitemapReader,
		discoverer:         discoverer,
		classifier:         classifier,
		enricher:           enricher,
		maxConcurrent:      maxConcurrent,
		sitemapRecencyDays: sitemapRecencyDays,
		running:            make(map[string]context.CancelFunc),
	}
}

// Crawl runs one crawl job for the source. It refuses outright, with no job
// created, when the concurrency ceiling is hit or the source already has a
// crawl running in this process.
func (e *Engine) Crawl(ctx context.Context, source *database.Source) (*database.CrawlJob, error) {
	if !source.Enabled {
		return nil, ErrSourceDisabled
	}

	crawlCtx, err := e.acquire(source.ID)
	if err != nil {
		return nil, err
	}
	defer e.release(source.ID)

	// tie the crawl to both the caller's context and the cancel flag
	go func() {
		select {
		case <-ctx.Done():
			e.CancelCrawl(source.ID)
		case <-crawlCtx.Done():
		}
	}()

	job, err := e.jobRepo.CreateJob(source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create crawl job: %w", err)
	}

	slog.Info("Crawl started", "source", source.Name, "type", source.Type, "job_id", job.ID)
	start := time.Now()

	candidates, err := e.readSource(crawlCtx, source)
	if err != nil {
		slog.Warn("Crawl failed", "source", source.Name, "job_id", job.ID, "error", err)
		if failErr := e.jobRepo.FailJob(job.ID, err.Error(), 0, 0, 0); failErr != nil {
			slog.Error("Failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		e.touchSource(source)
		job.Status = database.JobStatusFailed
		job.ErrorMessage = err.Error()
		return job, nil
	}

	found := len(candidates)
	submitted := 0
	failed := 0
	var newIDs []string

	delay := e.policyClient.CrawlDelay(crawlCtx, source.Domain)

	for i, candidate := range candidates {
		if crawlCtx.Err() != nil {
			slog.Info("Crawl cancelled", "source", source.Name, "job_id", job.ID, "processed", i)
			break
		}

		if !e.policyClient.IsAllowed(crawlCtx, candidate.URL) {
			slog.Debug("URL disallowed by crawl policy", "url", candidate.URL)
			continue
		}

		id, err := e.submit(source, candidate)
		if err != nil {
			failed++
			slog.Debug("Item submission failed", "url", candidate.URL, "error", err)
			continue
		}
		if id != "" {
			submitted++
			newIDs = append(newIDs, id)
		}

		// serial pacing between items; the delay wait is cancellable
		if i < len(candidates)-1 && !sleepCtx(crawlCtx, delay) {
			break
		}
	}

	if err := e.jobRepo.CompleteJob(job.ID, found, submitted, failed); err != nil {
		slog.Error("Failed to complete crawl job", "job_id", job.ID, "error", err)
	}
	e.touchSource(source)

	slog.Info("Crawl completed", "source", source.Name, "job_id", job.ID,
		"duration", time.Since(start).Round(time.Millisecond),
		"found", found, "submitted", submitted, "failed", failed)

	// Enrichment never blocks job completion; its failures are logged only.
	if len(newIDs) > 0 && e.enricher != nil {
		e.enrichWG.Add(1)
		go func() {
			defer e.enrichWG.Done()
			e.enricher.EnrichAll(context.Background(), newIDs)
		}()
	}

	job.Status = database.JobStatusCompleted
	job.ItemsFound = found
	job.ItemsSubmitted = submitted
	job.ItemsFailed = failed
	return job, nil
}

// CancelCrawl flags the source's running crawl for cancellation. Cooperative:
// the flag is honored between item iterations and interrupts the rate-limit
// wait, but an in-flight network call completes.
func (e *Engine) CancelCrawl(sourceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.running[sourceID]
	if ok {
		cancel()
	}
	return ok
}

// ActiveCrawls reports how many crawls are currently running.
func (e *Engine) ActiveCrawls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// WaitForEnrichment blocks until dispatched enrichment finishes. Test hook.
func (e *Engine) WaitForEnrichment() {
	e.enrichWG.Wait()
}

func (e *Engine) acquire(sourceID string) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active >= e.maxConcurrent {
		return nil, ErrConcurrencyExceeded
	}
	if _, ok := e.running[sourceID]; ok {
		return nil, ErrSourceRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.running[sourceID] = cancel
	e.active++
	return ctx, nil
}

func (e *Engine) release(sourceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.running[sourceID]; ok {
		cancel()
		delete(e.running, sourceID)
	}
	e.active--
}

// readSource resolves the source type into a candidate list. Reader failures
// are whole-source failures.
func (e *Engine) readSource(ctx context.Context, source *database.Source) ([]sources.Candidate, error) {
	switch source.Type {
	case database.SourceTypeFeed:
		return e.feedReader.ParseFeed(ctx, source.URL)

	case database.SourceTypeSitemap:
		candidates, err := e.sitemapReader.ParseSitemap(ctx, source.URL)
		if err != nil {
			return nil, err
		}
		return sources.FilterByRecency(candidates, e.sitemapRecencyDays), nil

	case database.SourceTypeSite:
		return e.discoverAndRead(ctx, source)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// discoverAndRead handles a bare homepage: prefer a discovered feed, fall
// back to declared or conventional sitemaps.
func (e *Engine) discoverAndRead(ctx context.Context, source *database.Source) ([]sources.Candidate, error) {
	feeds, err := e.discoverer.DiscoverFeeds(ctx, source.URL)
	if err == nil && len(feeds) > 0 {
		return e.feedReader.ParseFeed(ctx, feeds[0])
	}

	sitemaps := e.policyClient.SitemapURLs(ctx, source.Domain)
	sitemaps = append(sitemaps, e.discoverer.DiscoverSitemaps(ctx, source.Domain)...)
	for _, sitemapURL := range sitemaps {
		candidates, err := e.sitemapReader.ParseSitemap(ctx, sitemapURL)
		if err != nil {
			continue
		}
		return sources.FilterByRecency(candidates, e.sitemapRecencyDays), nil
	}

	return nil, &sources.ReadError{URL: source.URL, Err: fmt.Errorf("no feed or sitemap discovered")}
}

// submit classifies and stores one candidate. Returns empty id for a URL
// that already exists (duplicate, not an error).
func (e *Engine) submit(source *database.Source, candidate sources.Candidate) (string, error) {
	topics := source.Topics
	if len(topics) == 0 {
		topics = e.classifier.Classify(candidate.URL, candidate.Title, candidate.Description)
	} else {
		topics = e.classifier.Validate(topics)
		if len(topics) == 0 {
			topics = e.classifier.Classify(candidate.URL, candidate.Title, candidate.Description)
		}
	}

	topicIDs, err := e.topicRepo.GetTopicIDsByName(topics)
	if err != nil {
		return "", fmt.Errorf("failed to resolve topics: %w", err)
	}

	assignments := make([]database.TopicAssignment, 0, len(topics))
	for _, name := range topics {
		id, ok := topicIDs[name]
		if !ok {
			continue
		}
		assignments = append(assignments, database.TopicAssignment{
			TopicID:    id,
			TopicName:  name,
			Confidence: classify.DefaultConfidence,
		})
	}

	title := candidate.Title
	if title == "" {
		title = candidate.URL
	}

	domain := urlDomain(candidate.URL)
	if domain == "" {
		domain = source.Domain
	}

	item := database.ContentItem{
		URL:          candidate.URL,
		Title:        title,
		Description:  candidate.Description,
		Domain:       domain,
		PublishedAt:  candidate.LastModified,
		QualityScore: 0.5,
		BaseScore:    0.5,
	}

	return e.contentRepo.CreateItemWithTopics(item, assignments)
}

func (e *Engine) touchSource(source *database.Source) {
	now := time.Now().UTC()
	next := now.Add(time.Duration(source.CrawlFrequencyHours) * time.Hour)
	if err := e.sourceRepo.UpdateCrawlTimestamps(source.ID, now, next); err != nil {
		slog.Error("Failed to update source timestamps", "source", source.Name, "error", err)
	}
}

func urlDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// sleepCtx waits for d or until the context is cancelled; false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
