package api

import (
	"context"
	"time"

	"github.com/driftfeed/driftfeed/app/crawler"
	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/reputation"
	"github.com/driftfeed/driftfeed/app/scoring"
)

type RecommenderInterface interface {
	Recommend(userID string, wildness int, seenIDs []string) (*scoring.Scored, bool, error)
}

var _ RecommenderInterface = (*Recommender)(nil)

type CrawlerInterface interface {
	Crawl(ctx context.Context, source *database.Source) (*database.CrawlJob, error)
	CancelCrawl(sourceID string) bool
	ActiveCrawls() int
}

var _ CrawlerInterface = (*crawler.Engine)(nil)

type EnricherInterface interface {
	EnrichAll(ctx context.Context, contentIDs []string) []crawler.EnrichResult
}

var _ EnricherInterface = (*crawler.Enricher)(nil)

type ReputationManagerInterface interface {
	Get(domain string) (*database.DomainReputation, error)
	Update(domain string) (*database.DomainReputation, error)
	TopDomains(limit int) ([]database.DomainReputation, error)
	Blacklisted() ([]database.DomainReputation, error)
	Blacklist(domain, reason string) error
	Unblacklist(domain string) error
}

var _ ReputationManagerInterface = (*reputation.Manager)(nil)

type Handler struct {
	sourceRepo  database.SourceRepository
	jobRepo     database.CrawlJobRepository
	contentRepo database.ContentRepository
	recommender RecommenderInterface
	crawler     CrawlerInterface
	enricher    EnricherInterface
	reputation  ReputationManagerInterface
}

type RecommendationRequest struct {
	Wildness int      `json:"wildness"`
	SeenIDs  []string `json:"seen_ids"`
}

type DiscoveryResponse struct {
	Discovery     ContentItemResponse `json:"discovery"`
	Score         float64             `json:"score"`
	Reason        string              `json:"reason"`
	ResetRequired bool                `json:"reset_required,omitempty"`
}

type ContentItemResponse struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Domain      string     `json:"domain"`
	Topics      []string   `json:"topics"`
	ImageURL    string     `json:"image_url,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toContentItemResponse(item database.ContentItem) ContentItemResponse {
	return ContentItemResponse{
		ID:          item.ID,
		URL:         item.URL,
		Title:       item.Title,
		Description: item.Description,
		Domain:      item.Domain,
		Topics:      item.Topics,
		ImageURL:    item.ImageURL,
		Author:      item.Author,
		PublishedAt: item.PublishedAt,
		CreatedAt:   item.CreatedAt,
	}
}

type SourceRequest struct {
	Name                *string   `json:"name"`
	Type                *string   `json:"type"`
	URL                 *string   `json:"url"`
	CrawlFrequencyHours *int      `json:"crawl_frequency_hours"`
	Enabled             *bool     `json:"enabled"`
	Topics              *[]string `json:"topics"`
	ExtractLinks        *bool     `json:"extract_links"`
}

type SourceResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	URL                 string     `json:"url"`
	Domain              string     `json:"domain"`
	CrawlFrequencyHours int        `json:"crawl_frequency_hours"`
	Enabled             bool       `json:"enabled"`
	Topics              []string   `json:"topics"`
	ExtractLinks        bool       `json:"extract_links"`
	LastCrawledAt       *time.Time `json:"last_crawled_at,omitempty"`
	NextCrawlAt         *time.Time `json:"next_crawl_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toSourceResponse(s database.Source) SourceResponse {
	return SourceResponse{
		ID:                  s.ID,
		Name:                s.Name,
		Type:                string(s.Type),
		URL:                 s.URL,
		Domain:              s.Domain,
		CrawlFrequencyHours: s.CrawlFrequencyHours,
		Enabled:             s.Enabled,
		Topics:              s.Topics,
		ExtractLinks:        s.ExtractLinks,
		LastCrawledAt:       s.LastCrawledAt,
		NextCrawlAt:         s.NextCrawlAt,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

type CrawlJobResponse struct {
	ID             string     `json:"id"`
	SourceID       string     `json:"source_id"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ItemsFound     int        `json:"items_found"`
	ItemsSubmitted int        `json:"items_submitted"`
	ItemsFailed    int        `json:"items_failed"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

func toCrawlJobResponse(job database.CrawlJob) CrawlJobResponse {
	return CrawlJobResponse{
		ID:             job.ID,
		SourceID:       job.SourceID,
		Status:         string(job.Status),
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		ItemsFound:     job.ItemsFound,
		ItemsSubmitted: job.ItemsSubmitted,
		ItemsFailed:    job.ItemsFailed,
		ErrorMessage:   job.ErrorMessage,
	}
}

type FeedbackRequest struct {
	ContentID string `json:"content_id"`
	Action    string `json:"action"`
}

type BlockDomainRequest struct {
	Domain string `json:"domain"`
}

type EnhanceRequest struct {
	ContentIDs []string `json:"content_ids"`
	BatchSize  int      `json:"batch_size"`
}

type BlacklistRequest struct {
	Reason string `json:"reason"`
}

type ReputationResponse struct {
	Domain            string    `json:"domain"`
	Score             float64   `json:"score"`
	TrustScore        float64   `json:"trust_score"`
	ApprovedCount     int       `json:"approved_count"`
	RejectedCount     int       `json:"rejected_count"`
	FlaggedCount      int       `json:"flagged_count"`
	AvgQualityScore   float64   `json:"avg_quality_score"`
	AvgEngagementRate float64   `json:"avg_engagement_rate"`
	TotalContent      int       `json:"total_content"`
	IsBlacklisted     bool      `json:"is_blacklisted"`
	BlacklistReason   string    `json:"blacklist_reason,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
}

func toReputationResponse(rep database.DomainReputation) ReputationResponse {
	return ReputationResponse{
		Domain:            rep.Domain,
		Score:             rep.Score,
		TrustScore:        rep.TrustScore,
		ApprovedCount:     rep.ApprovedCount,
		RejectedCount:     rep.RejectedCount,
		FlaggedCount:      rep.FlaggedCount,
		AvgQualityScore:   rep.AvgQualityScore,
		AvgEngagementRate: rep.AvgEngagementRate,
		TotalContent:      rep.TotalContent,
		IsBlacklisted:     rep.IsBlacklisted,
		BlacklistReason:   rep.BlacklistReason,
		LastUpdated:       rep.LastUpdated,
	}
}
