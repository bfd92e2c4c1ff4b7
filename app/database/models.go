package database

import (
	"time"
)

type SourceType string

const (
	SourceTypeFeed    SourceType = "feed"
	SourceTypeSitemap SourceType = "sitemap"
	SourceTypeSite    SourceType = "site"
)

type Source struct {
	ID                  string
	Name                string
	Type                SourceType
	URL                 string
	Domain              string
	CrawlFrequencyHours int
	Enabled             bool
	Topics              []string
	ExtractLinks        bool
	LastCrawledAt       *time.Time
	NextCrawlAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type CrawlJob struct {
	ID             string
	SourceID       string
	Status         JobStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	ItemsFound     int
	ItemsSubmitted int
	ItemsFailed    int
	ErrorMessage   string
}

type ContentItem struct {
	ID               string
	URL              string
	Title            string
	Description      string
	Domain           string
	Topics           []string
	ImageURL         string
	Author           string
	PublishedAt      *time.Time
	QualityScore     float64
	BaseScore        float64
	PopularityScore  float64
	ModerationStatus string
	LikesCount       int
	SavesCount       int
	SharesCount      int
	ViewsCount       int
	IsActive         bool
	CreatedAt        time.Time
}

type Topic struct {
	ID       string
	Name     string
	IsActive bool
}

type TopicAssignment struct {
	ContentID  string
	TopicID    string
	TopicName  string
	Confidence float64
}

type DomainReputation struct {
	Domain            string
	Score             float64
	TrustScore        float64
	ApprovedCount     int
	RejectedCount     int
	FlaggedCount      int
	AvgQualityScore   float64
	AvgEngagementRate float64
	TotalContent      int
	IsBlacklisted     bool
	BlacklistReason   string
	LastUpdated       time.Time
}

// DomainStats are raw aggregates over a domain's content, the inputs to a
// reputation recompute.
type DomainStats struct {
	Domain            string
	TotalContent      int
	ApprovedCount     int
	RejectedCount     int
	FlaggedCount      int
	AvgQualityScore   float64
	AvgEngagementRate float64
	LastContentAt     *time.Time
}

type FeedbackAction string

const (
	FeedbackLike    FeedbackAction = "like"
	FeedbackDislike FeedbackAction = "dislike"
	FeedbackSave    FeedbackAction = "save"
	FeedbackShare   FeedbackAction = "share"
	FeedbackSkip    FeedbackAction = "skip"
	FeedbackView    FeedbackAction = "view"
)

// UserInteractionHistory is the aggregated read model of a user's past
// feedback, keyed by topic and domain.
type UserInteractionHistory struct {
	LikedTopics    map[string]float64
	DislikedTopics map[string]float64
	LikedDomains   map[string]float64
	LikeRate       float64
	SkipRate       float64
	TotalEvents    int
}
