package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/driftfeed/driftfeed/app/classify"
	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/policy"
	"github.com/driftfeed/driftfeed/app/sources"
)

const testFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Quantum physics breakthrough</title>
      <link>https://articles.example.com/item1</link>
      <description>A particle experiment</description>
    </item>
    <item>
      <title>Ancient history uncovered</title>
      <link>https://articles.example.com/item2</link>
      <description>A medieval archive</description>
    </item>
  </channel>
</rss>`

type engineFixture struct {
	engine      *Engine
	sourceRepo  *MockSourceRepository
	jobRepo     *MockCrawlJobRepository
	contentRepo *MockContentRepository
}

func newEngineFixture(t *testing.T, feedServer *httptest.Server, maxConcurrent int) *engineFixture {
	t.Helper()

	sourceRepo := &MockSourceRepository{}
	jobRepo := &MockCrawlJobRepository{}
	contentRepo := NewMockContentRepository()
	topicRepo := &MockTopicRepository{}

	policyClient := policy.NewClient(&http.Client{Transport: noRobotsTransport{}}, "TestBot/1.0", 0)

	httpClient := http.DefaultClient
	if feedServer != nil {
		httpClient = feedServer.Client()
	}
	feedReader := sources.NewFeedReader(httpClient, "TestBot/1.0")
	sitemapReader := sources.NewSitemapReader(httpClient, "TestBot/1.0")
	discoverer := sources.NewDiscoverer(httpClient, "TestBot/1.0")

	vocabulary := classify.NewVocabulary(topicRepo)
	vocabulary.Init()
	classifier := classify.NewClassifier(vocabulary)

	engine := NewEngine(sourceRepo, jobRepo, contentRepo, topicRepo,
		policyClient, feedReader, sitemapReader, discoverer, classifier, nil,
		maxConcurrent, 30)

	return &engineFixture{
		engine:      engine,
		sourceRepo:  sourceRepo,
		jobRepo:     jobRepo,
		contentRepo: contentRepo,
	}
}

func feedSource(url string) *database.Source {
	return &database.Source{
		ID:                  "src-1",
		Name:                "Test Source",
		Type:                database.SourceTypeFeed,
		URL:                 url,
		Domain:              "example.com",
		CrawlFrequencyHours: 24,
		Enabled:             true,
	}
}

func TestCrawlFeedSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	f := newEngineFixture(t, server, 5)
	job, err := f.engine.Crawl(context.Background(), feedSource(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	if job.Status != database.JobStatusCompleted {
		t.Errorf("Expected completed job, got %s", job.Status)
	}
	if job.ItemsFound != 2 || job.ItemsSubmitted != 2 || job.ItemsFailed != 0 {
		t.Errorf("Expected found=2 submitted=2 failed=0, got %d/%d/%d",
			job.ItemsFound, job.ItemsSubmitted, job.ItemsFailed)
	}

	if len(f.contentRepo.created) != 2 {
		t.Fatalf("Expected 2 items stored, got %d", len(f.contentRepo.created))
	}
	first := f.contentRepo.created[0]
	if first.Domain != "articles.example.com" {
		t.Errorf("Expected the item's own domain, got %q", first.Domain)
	}
	if first.QualityScore != 0.5 || first.BaseScore != 0.5 {
		t.Errorf("Expected neutral initial scores, got quality=%f base=%f",
			first.QualityScore, first.BaseScore)
	}

	// The relational assignments must mirror the denormalized topic array
	assignments := f.contentRepo.assigned[0]
	if len(assignments) != len(first.Topics) {
		t.Fatalf("Expected %d assignments for %d topics, got %d",
			len(first.Topics), len(first.Topics), len(assignments))
	}
	for i, a := range assignments {
		if a.TopicName != first.Topics[i] {
			t.Errorf("Expected assignment %d for topic %q, got %q", i, first.Topics[i], a.TopicName)
		}
		if a.TopicID != "id-"+first.Topics[i] {
			t.Errorf("Expected topic id %q, got %q", "id-"+first.Topics[i], a.TopicID)
		}
		if a.Confidence != classify.DefaultConfidence {
			t.Errorf("Expected default confidence, got %f", a.Confidence)
		}
	}

	if len(f.sourceRepo.touched) != 1 {
		t.Errorf("Expected source timestamps updated once, got %d", len(f.sourceRepo.touched))
	}
	if len(f.jobRepo.completed) != 1 {
		t.Errorf("Expected one completed job record, got %d", len(f.jobRepo.completed))
	}
}

func TestCrawlDisabledSource(t *testing.T) {
	f := newEngineFixture(t, nil, 5)
	source := feedSource("https://example.com/feed")
	source.Enabled = false

	_, err := f.engine.Crawl(context.Background(), source)
	if !errors.Is(err, ErrSourceDisabled) {
		t.Errorf("Expected ErrSourceDisabled, got %v", err)
	}
	if f.jobRepo.created != 0 {
		t.Error("Expected no job created for a disabled source")
	}
}

func TestCrawlConcurrencyRefusedWithoutJob(t *testing.T) {
	f := newEngineFixture(t, nil, 0)

	_, err := f.engine.Crawl(context.Background(), feedSource("https://example.com/feed"))
	if !errors.Is(err, ErrConcurrencyExceeded) {
		t.Errorf("Expected ErrConcurrencyExceeded, got %v", err)
	}
	if f.jobRepo.created != 0 {
		t.Error("Expected no job record when the crawl is refused outright")
	}
}

func TestCrawlSourceAlreadyRunning(t *testing.T) {
	f := newEngineFixture(t, nil, 5)

	// Simulate a crawl in flight for the same source
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.mu.Lock()
	f.engine.running["src-1"] = cancel
	f.engine.active = 1
	f.engine.mu.Unlock()

	_, err := f.engine.Crawl(context.Background(), feedSource("https://example.com/feed"))
	if !errors.Is(err, ErrSourceRunning) {
		t.Errorf("Expected ErrSourceRunning, got %v", err)
	}
	if f.jobRepo.created != 0 {
		t.Error("Expected no job record for a per-source refusal")
	}
}

func TestCrawlReadFailureFailsJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := newEngineFixture(t, server, 5)
	job, err := f.engine.Crawl(context.Background(), feedSource(server.URL))
	if err != nil {
		t.Fatalf("Expected a failed job, not an error: %v", err)
	}

	if job.Status != database.JobStatusFailed {
		t.Errorf("Expected failed job, got %s", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Error("Expected an error message on the failed job")
	}
	if len(f.jobRepo.failed) != 1 {
		t.Errorf("Expected one failed job record, got %d", len(f.jobRepo.failed))
	}
	if len(f.sourceRepo.touched) != 1 {
		t.Error("Expected source timestamps advanced even after a failure")
	}
}

func TestCrawlDuplicateItemsNotResubmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	f := newEngineFixture(t, server, 5)
	source := feedSource(server.URL)

	if _, err := f.engine.Crawl(context.Background(), source); err != nil {
		t.Fatal(err)
	}
	job, err := f.engine.Crawl(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}

	if job.ItemsFound != 2 {
		t.Errorf("Expected both items found on the second pass, got %d", job.ItemsFound)
	}
	if job.ItemsSubmitted != 0 {
		t.Errorf("Expected no new submissions for duplicates, got %d", job.ItemsSubmitted)
	}
	if len(f.contentRepo.created) != 2 {
		t.Errorf("Expected no duplicate items stored, got %d", len(f.contentRepo.created))
	}
}

func TestCrawlSourceTopicsOverrideClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	f := newEngineFixture(t, server, 5)
	source := feedSource(server.URL)
	source.Topics = []string{"science"}

	if _, err := f.engine.Crawl(context.Background(), source); err != nil {
		t.Fatal(err)
	}
	if len(f.contentRepo.created) != 2 {
		t.Fatalf("Expected 2 items stored, got %d", len(f.contentRepo.created))
	}
}

func TestActiveCrawlsReleased(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	f := newEngineFixture(t, server, 5)
	if _, err := f.engine.Crawl(context.Background(), feedSource(server.URL)); err != nil {
		t.Fatal(err)
	}
	if got := f.engine.ActiveCrawls(); got != 0 {
		t.Errorf("Expected the slot released after the crawl, got %d active", got)
	}
}

func TestCancelCrawlWithoutActive(t *testing.T) {
	f := newEngineFixture(t, nil, 5)
	if f.engine.CancelCrawl("nope") {
		t.Error("Expected false when no crawl is running for the source")
	}
}

func TestSleepCtxCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if sleepCtx(ctx, 5*time.Second) {
		t.Error("Expected the wait interrupted by cancellation")
	}
	if time.Since(start) > time.Second {
		t.Error("Expected the wait to end promptly on cancellation")
	}
}

func TestSleepCtxZeroDelay(t *testing.T) {
	if !sleepCtx(context.Background(), 0) {
		t.Error("Expected zero delay to return immediately")
	}
}

func TestURLDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.Example.com/page", "example.com"},
		{"https://sub.example.com/page", "sub.example.com"},
		{"relative/path", ""},
	}
	for _, tt := range tests {
		if got := urlDomain(tt.url); got != tt.expected {
			t.Errorf("Expected %q for %q, got %q", tt.expected, tt.url, got)
		}
	}
}
