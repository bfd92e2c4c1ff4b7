package api

import (
	"context"
	"time"

	"github.com/driftfeed/driftfeed/app/crawler"
	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/scoring"
)

// MockSourceRepository implements a simple mock for testing
type MockSourceRepository struct {
	sources   map[string]database.Source
	created   []database.Source
	updates   map[string]database.SourceUpdate
	deleted   []string
	listErr   error
	nextID    string
	updateNil bool
}

func NewMockSourceRepository() *MockSourceRepository {
	return &MockSourceRepository{
		sources: make(map[string]database.Source),
		updates: make(map[string]database.SourceUpdate),
		nextID:  "new-source-id",
	}
}

func (m *MockSourceRepository) GetSource(id string) (*database.Source, error) {
	if s, ok := m.sources[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *MockSourceRepository) ListSources() ([]database.Source, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]database.Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	return out, nil
}

func (m *MockSourceRepository) GetSourcesDueForCrawl(now time.Time) ([]database.Source, error) {
	return nil, nil
}

func (m *MockSourceRepository) CreateSource(s database.Source) (string, error) {
	m.created = append(m.created, s)
	s.ID = m.nextID
	m.sources[m.nextID] = s
	return m.nextID, nil
}

func (m *MockSourceRepository) UpdateSource(id string, update database.SourceUpdate) (*database.Source, error) {
	m.updates[id] = update
	if m.updateNil {
		return nil, nil
	}
	if s, ok := m.sources[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *MockSourceRepository) DeleteSource(id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MockSourceRepository) UpsertSeedSource(s database.Source) (string, error) { return "", nil }

func (m *MockSourceRepository) UpdateCrawlTimestamps(id string, lastCrawledAt, nextCrawlAt time.Time) error {
	return nil
}

func (m *MockSourceRepository) GetSourceCount() (int, error) { return len(m.sources), nil }

var _ database.SourceRepository = (*MockSourceRepository)(nil)

// MockCrawlJobRepository implements a simple mock for testing
type MockCrawlJobRepository struct {
	jobs []database.CrawlJob
}

func (m *MockCrawlJobRepository) CreateJob(sourceID string) (*database.CrawlJob, error) {
	return nil, nil
}

func (m *MockCrawlJobRepository) CompleteJob(id string, found, submitted, failed int) error {
	return nil
}

func (m *MockCrawlJobRepository) FailJob(id string, errorMessage string, found, submitted, failed int) error {
	return nil
}

func (m *MockCrawlJobRepository) GetJob(id string) (*database.CrawlJob, error) { return nil, nil }

func (m *MockCrawlJobRepository) ListJobsBySource(sourceID string, limit int) ([]database.CrawlJob, error) {
	if limit < len(m.jobs) {
		return m.jobs[:limit], nil
	}
	return m.jobs, nil
}

func (m *MockCrawlJobRepository) FailOrphanedJobs() (int, error) { return 0, nil }

func (m *MockCrawlJobRepository) GetJobCounts() (int, int, int, error) { return 1, 2, 3, nil }

var _ database.CrawlJobRepository = (*MockCrawlJobRepository)(nil)

// MockContentRepository implements a simple mock for testing
type MockContentRepository struct {
	candidates    []database.ContentItem
	candidatesErr error
	assignments   map[string][]database.TopicAssignment
	history       *database.UserInteractionHistory
	historyErr    error
	blocked       map[string][]string
	feedback      []string
	feedbackErr   error
	globalAvg     float64
}

func NewMockContentRepository() *MockContentRepository {
	return &MockContentRepository{
		assignments: make(map[string][]database.TopicAssignment),
		blocked:     make(map[string][]string),
	}
}

func (m *MockContentRepository) GetItem(id string) (*database.ContentItem, error) { return nil, nil }

func (m *MockContentRepository) GetItemByURL(url string) (*database.ContentItem, error) {
	return nil, nil
}

func (m *MockContentRepository) CreateItemWithTopics(item database.ContentItem, assignments []database.TopicAssignment) (string, error) {
	return "", nil
}

func (m *MockContentRepository) GetCandidates(limit int) ([]database.ContentItem, error) {
	if m.candidatesErr != nil {
		return nil, m.candidatesErr
	}
	return m.candidates, nil
}

func (m *MockContentRepository) GetAssignments(contentID string) ([]database.TopicAssignment, error) {
	return m.assignments[contentID], nil
}

func (m *MockContentRepository) UpdateMetadata(id string, description, imageURL, author string, publishedAt *time.Time) error {
	return nil
}

func (m *MockContentRepository) GetGlobalAvgEngagement() (float64, error) { return m.globalAvg, nil }

func (m *MockContentRepository) GetActiveDomains(since time.Time) ([]string, error) {
	return nil, nil
}

func (m *MockContentRepository) GetDomainStats(domain string) (*database.DomainStats, error) {
	return nil, nil
}

func (m *MockContentRepository) RecordFeedback(userID, contentID string, action database.FeedbackAction) error {
	if m.feedbackErr != nil {
		return m.feedbackErr
	}
	m.feedback = append(m.feedback, userID+":"+contentID+":"+string(action))
	return nil
}

func (m *MockContentRepository) GetUserHistory(userID string) (*database.UserInteractionHistory, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

func (m *MockContentRepository) GetBlockedDomains(userID string) ([]string, error) {
	return m.blocked[userID], nil
}

func (m *MockContentRepository) BlockDomain(userID, domain string) error {
	m.blocked[userID] = append(m.blocked[userID], domain)
	return nil
}

func (m *MockContentRepository) VerifyTopicConsistency(limit int) ([]string, error) {
	return nil, nil
}

func (m *MockContentRepository) RepairTopicConsistency(contentID string) error { return nil }

func (m *MockContentRepository) GetItemCount() (int, error) { return len(m.candidates), nil }

var _ database.ContentRepository = (*MockContentRepository)(nil)

// MockReputationRepository implements a simple mock for testing
type MockReputationRepository struct {
	reps   map[string]database.DomainReputation
	getErr error
}

func NewMockReputationRepository() *MockReputationRepository {
	return &MockReputationRepository{reps: make(map[string]database.DomainReputation)}
}

func (m *MockReputationRepository) GetReputation(domain string) (*database.DomainReputation, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if rep, ok := m.reps[domain]; ok {
		return &rep, nil
	}
	return nil, nil
}

func (m *MockReputationRepository) UpsertReputation(rep database.DomainReputation) error { return nil }

func (m *MockReputationRepository) TopDomains(limit int) ([]database.DomainReputation, error) {
	return nil, nil
}

func (m *MockReputationRepository) ListBlacklisted() ([]database.DomainReputation, error) {
	return nil, nil
}

func (m *MockReputationRepository) SetBlacklisted(domain string, blacklisted bool, reason string) error {
	return nil
}

var _ database.ReputationRepository = (*MockReputationRepository)(nil)

// MockRecommender implements RecommenderInterface for handler tests
type MockRecommender struct {
	result       *scoring.Scored
	reset        bool
	err          error
	lastUserID   string
	lastWildness int
	lastSeenIDs  []string
}

func (m *MockRecommender) Recommend(userID string, wildness int, seenIDs []string) (*scoring.Scored, bool, error) {
	m.lastUserID = userID
	m.lastWildness = wildness
	m.lastSeenIDs = seenIDs
	if m.err != nil {
		return nil, false, m.err
	}
	return m.result, m.reset, nil
}

var _ RecommenderInterface = (*MockRecommender)(nil)

// MockCrawlEngine implements CrawlerInterface for handler tests
type MockCrawlEngine struct {
	job       *database.CrawlJob
	err       error
	cancelled bool
	active    int
	crawled   []string
}

func (m *MockCrawlEngine) Crawl(ctx context.Context, source *database.Source) (*database.CrawlJob, error) {
	m.crawled = append(m.crawled, source.ID)
	return m.job, m.err
}

func (m *MockCrawlEngine) CancelCrawl(sourceID string) bool { return m.cancelled }

func (m *MockCrawlEngine) ActiveCrawls() int { return m.active }

var _ CrawlerInterface = (*MockCrawlEngine)(nil)

// MockEnricher implements EnricherInterface for handler tests
type MockEnricher struct {
	lastIDs []string
}

func (m *MockEnricher) EnrichAll(ctx context.Context, contentIDs []string) []crawler.EnrichResult {
	m.lastIDs = contentIDs
	results := make([]crawler.EnrichResult, 0, len(contentIDs))
	for _, id := range contentIDs {
		results = append(results, crawler.EnrichResult{ContentID: id, Outcome: crawler.OutcomeEnhanced})
	}
	return results
}

var _ EnricherInterface = (*MockEnricher)(nil)

// MockReputationManager implements ReputationManagerInterface for handler tests
type MockReputationManager struct {
	reps          map[string]*database.DomainReputation
	top           []database.DomainReputation
	blacklisted   []database.DomainReputation
	blacklistLog  []string
	unblacklisted []string
}

func NewMockReputationManager() *MockReputationManager {
	return &MockReputationManager{reps: make(map[string]*database.DomainReputation)}
}

func (m *MockReputationManager) Get(domain string) (*database.DomainReputation, error) {
	return m.reps[domain], nil
}

func (m *MockReputationManager) Update(domain string) (*database.DomainReputation, error) {
	return m.reps[domain], nil
}

func (m *MockReputationManager) TopDomains(limit int) ([]database.DomainReputation, error) {
	return m.top, nil
}

func (m *MockReputationManager) Blacklisted() ([]database.DomainReputation, error) {
	return m.blacklisted, nil
}

func (m *MockReputationManager) Blacklist(domain, reason string) error {
	m.blacklistLog = append(m.blacklistLog, domain+":"+reason)
	return nil
}

func (m *MockReputationManager) Unblacklist(domain string) error {
	m.unblacklisted = append(m.unblacklisted, domain)
	return nil
}

var _ ReputationManagerInterface = (*MockReputationManager)(nil)
