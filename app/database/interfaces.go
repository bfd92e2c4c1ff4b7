package database

import (
	"time"
)

// SourceUpdate carries every mutable source field. Nil means "leave as is".
// Any field missing here is silently undeletable through the API, so keep
// this struct in lockstep with the sources table.
type SourceUpdate struct {
	Name                *string
	Type                *SourceType
	URL                 *string
	Domain              *string
	CrawlFrequencyHours *int
	Enabled             *bool
	Topics              *[]string
	ExtractLinks        *bool
}

type SourceRepository interface {
	GetSource(id string) (*Source, error)
	ListSources() ([]Source, error)
	GetSourcesDueForCrawl(now time.Time) ([]Source, error)
	CreateSource(s Source) (string, error)
	UpdateSource(id string, update SourceUpdate) (*Source, error)
	DeleteSource(id string) error
	UpsertSeedSource(s Source) (string, error)
	UpdateCrawlTimestamps(id string, lastCrawledAt, nextCrawlAt time.Time) error
	GetSourceCount() (int, error)
}

type CrawlJobRepository interface {
	CreateJob(sourceID string) (*CrawlJob, error)
	CompleteJob(id string, found, submitted, failed int) error
	FailJob(id string, errorMessage string, found, submitted, failed int) error
	GetJob(id string) (*CrawlJob, error)
	ListJobsBySource(sourceID string, limit int) ([]CrawlJob, error)
	FailOrphanedJobs() (int, error)
	GetJobCounts() (running int, completed int, failed int, err error)
}

type ContentRepository interface {
	GetItem(id string) (*ContentItem, error)
	GetItemByURL(url string) (*ContentItem, error)
	// CreateItemWithTopics writes the item, its denormalized topic array and
	// the relational assignment rows in one transaction.
	CreateItemWithTopics(item ContentItem, assignments []TopicAssignment) (string, error)
	GetCandidates(limit int) ([]ContentItem, error)
	GetAssignments(contentID string) ([]TopicAssignment, error)
	UpdateMetadata(id string, description, imageURL, author string, publishedAt *time.Time) error
	GetGlobalAvgEngagement() (float64, error)
	GetActiveDomains(since time.Time) ([]string, error)
	GetDomainStats(domain string) (*DomainStats, error)
	RecordFeedback(userID, contentID string, action FeedbackAction) error
	GetUserHistory(userID string) (*UserInteractionHistory, error)
	GetBlockedDomains(userID string) ([]string, error)
	BlockDomain(userID, domain string) error
	VerifyTopicConsistency(limit int) ([]string, error)
	RepairTopicConsistency(contentID string) error
	GetItemCount() (int, error)
}

type TopicRepository interface {
	ListActiveTopicNames() ([]string, error)
	GetTopicIDsByName(names []string) (map[string]string, error)
}

type ReputationRepository interface {
	GetReputation(domain string) (*DomainReputation, error)
	UpsertReputation(rep DomainReputation) error
	TopDomains(limit int) ([]DomainReputation, error)
	ListBlacklisted() ([]DomainReputation, error)
	SetBlacklisted(domain string, blacklisted bool, reason string) error
}
