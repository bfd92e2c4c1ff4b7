package crawler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/driftfeed/driftfeed/app/database"
)

// MockSourceRepository implements a simple mock for testing
type MockSourceRepository struct {
	mu       sync.Mutex
	sources  []database.Source
	upserted []database.Source
	touched  []string
}

func (m *MockSourceRepository) GetSource(id string) (*database.Source, error) {
	for _, s := range m.sources {
		if s.ID == id {
			copied := s
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockSourceRepository) ListSources() ([]database.Source, error) { return m.sources, nil }

func (m *MockSourceRepository) GetSourcesDueForCrawl(now time.Time) ([]database.Source, error) {
	return m.sources, nil
}

func (m *MockSourceRepository) CreateSource(s database.Source) (string, error) {
	return "source-id", nil
}

func (m *MockSourceRepository) UpdateSource(id string, update database.SourceUpdate) (*database.Source, error) {
	return nil, nil
}

func (m *MockSourceRepository) DeleteSource(id string) error { return nil }

func (m *MockSourceRepository) UpsertSeedSource(s database.Source) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, s)
	return "seed-id", nil
}

func (m *MockSourceRepository) UpdateCrawlTimestamps(id string, lastCrawledAt, nextCrawlAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *MockSourceRepository) GetSourceCount() (int, error) { return len(m.sources), nil }

var _ database.SourceRepository = (*MockSourceRepository)(nil)

// MockCrawlJobRepository implements a simple mock for testing
type MockCrawlJobRepository struct {
	mu        sync.Mutex
	created   int
	completed []database.CrawlJob
	failed    []database.CrawlJob
}

func (m *MockCrawlJobRepository) CreateJob(sourceID string) (*database.CrawlJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	return &database.CrawlJob{
		ID:        "job-" + sourceID,
		SourceID:  sourceID,
		Status:    database.JobStatusRunning,
		StartedAt: time.Now(),
	}, nil
}

func (m *MockCrawlJobRepository) CompleteJob(id string, found, submitted, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, database.CrawlJob{
		ID: id, Status: database.JobStatusCompleted,
		ItemsFound: found, ItemsSubmitted: submitted, ItemsFailed: failed,
	})
	return nil
}

func (m *MockCrawlJobRepository) FailJob(id string, errorMessage string, found, submitted, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, database.CrawlJob{
		ID: id, Status: database.JobStatusFailed, ErrorMessage: errorMessage,
		ItemsFound: found, ItemsSubmitted: submitted, ItemsFailed: failed,
	})
	return nil
}

func (m *MockCrawlJobRepository) GetJob(id string) (*database.CrawlJob, error) { return nil, nil }

func (m *MockCrawlJobRepository) ListJobsBySource(sourceID string, limit int) ([]database.CrawlJob, error) {
	return nil, nil
}

func (m *MockCrawlJobRepository) FailOrphanedJobs() (int, error) { return 0, nil }

func (m *MockCrawlJobRepository) GetJobCounts() (int, int, int, error) { return 0, 0, 0, nil }

var _ database.CrawlJobRepository = (*MockCrawlJobRepository)(nil)

// MockContentRepository implements a simple mock for testing
type MockContentRepository struct {
	mu       sync.Mutex
	items    map[string]*database.ContentItem
	created  []database.ContentItem
	assigned [][]database.TopicAssignment
	updated  []string
	createID int
}

func NewMockContentRepository() *MockContentRepository {
	return &MockContentRepository{items: make(map[string]*database.ContentItem)}
}

func (m *MockContentRepository) GetItem(id string) (*database.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, nil
}

func (m *MockContentRepository) GetItemByURL(url string) (*database.ContentItem, error) {
	return nil, nil
}

func (m *MockContentRepository) CreateItemWithTopics(item database.ContentItem, assignments []database.TopicAssignment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.created {
		if existing.URL == item.URL {
			return "", nil
		}
	}
	m.createID++
	m.created = append(m.created, item)
	m.assigned = append(m.assigned, assignments)
	return item.URL, nil
}

func (m *MockContentRepository) GetCandidates(limit int) ([]database.ContentItem, error) {
	return nil, nil
}

func (m *MockContentRepository) GetAssignments(contentID string) ([]database.TopicAssignment, error) {
	return nil, nil
}

func (m *MockContentRepository) UpdateMetadata(id string, description, imageURL, author string, publishedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, id)
	return nil
}

func (m *MockContentRepository) GetGlobalAvgEngagement() (float64, error) { return 0, nil }

func (m *MockContentRepository) GetActiveDomains(since time.Time) ([]string, error) {
	return nil, nil
}

func (m *MockContentRepository) GetDomainStats(domain string) (*database.DomainStats, error) {
	return nil, errors.New("not implemented")
}

func (m *MockContentRepository) RecordFeedback(userID, contentID string, action database.FeedbackAction) error {
	return nil
}

func (m *MockContentRepository) GetUserHistory(userID string) (*database.UserInteractionHistory, error) {
	return nil, nil
}

func (m *MockContentRepository) GetBlockedDomains(userID string) ([]string, error) { return nil, nil }

func (m *MockContentRepository) BlockDomain(userID, domain string) error { return nil }

func (m *MockContentRepository) VerifyTopicConsistency(limit int) ([]string, error) {
	return nil, nil
}

func (m *MockContentRepository) RepairTopicConsistency(contentID string) error { return nil }

func (m *MockContentRepository) GetItemCount() (int, error) { return 0, nil }

var _ database.ContentRepository = (*MockContentRepository)(nil)

// MockTopicRepository implements a simple mock for testing
type MockTopicRepository struct{}

func (m *MockTopicRepository) ListActiveTopicNames() ([]string, error) {
	return nil, errors.New("store down")
}

func (m *MockTopicRepository) GetTopicIDsByName(names []string) (map[string]string, error) {
	ids := make(map[string]string, len(names))
	for _, name := range names {
		ids[name] = "id-" + name
	}
	return ids, nil
}

var _ database.TopicRepository = (*MockTopicRepository)(nil)

// noRobotsTransport answers every robots.txt fetch with 404, leaving crawl
// policies permissive with no crawl delay
type noRobotsTransport struct{}

func (noRobotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
	}, nil
}
