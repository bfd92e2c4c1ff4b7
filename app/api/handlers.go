package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftfeed/driftfeed/app/crawler"
	"github.com/driftfeed/driftfeed/app/database"
)

const (
	defaultJobListLimit    = 20
	defaultTopDomainsLimit = 20
	defaultEnhanceBatch    = 10
	maxEnhanceBatch        = 50
)

func NewHandler(sourceRepo database.SourceRepository, jobRepo database.CrawlJobRepository,
	contentRepo database.ContentRepository, recommender RecommenderInterface,
	crawlEngine CrawlerInterface, enricher EnricherInterface,
	reputationManager ReputationManagerInterface) *Handler {
	return &Handler{
		sourceRepo:  sourceRepo,
		jobRepo:     jobRepo,
		contentRepo: contentRepo,
		recommender: recommender,
		crawler:     crawlEngine,
		enricher:    enricher,
		reputation:  reputationManager,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = count
	}
	if count, err := h.contentRepo.GetItemCount(); err == nil {
		health["content_items"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"active_crawls": h.crawler.ActiveCrawls(),
	}

	if count, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = count
	}
	if count, err := h.contentRepo.GetItemCount(); err == nil {
		stats["content_items"] = count
	}
	if running, completed, failed, err := h.jobRepo.GetJobCounts(); err == nil {
		stats["jobs"] = map[string]int{
			"running":   running,
			"completed": completed,
			"failed":    failed,
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetRecommendation(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header required"})
		return
	}

	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	wildness := req.Wildness
	if wildness < 0 {
		wildness = 0
	}
	if wildness > 100 {
		wildness = 100
	}

	picked, reset, err := h.recommender.Recommend(userID, wildness, req.SeenIDs)
	if err != nil {
		if errors.Is(err, ErrNoCandidates) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No content available for discovery"})
			return
		}
		slog.Error("Recommendation failed", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate recommendation"})
		return
	}

	c.JSON(http.StatusOK, DiscoveryResponse{
		Discovery:     toContentItemResponse(picked.Item),
		Score:         picked.Score,
		Reason:        picked.Reason,
		ResetRequired: reset,
	})
}

func (h *Handler) RecordFeedback(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header required"})
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ContentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_id and action are required"})
		return
	}

	action := database.FeedbackAction(req.Action)
	switch action {
	case database.FeedbackLike, database.FeedbackDislike, database.FeedbackSave,
		database.FeedbackShare, database.FeedbackSkip, database.FeedbackView:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown feedback action"})
		return
	}

	if err := h.contentRepo.RecordFeedback(userID, req.ContentID, action); err != nil {
		slog.Error("Failed to record feedback", "user", userID, "content", req.ContentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (h *Handler) BlockDomain(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header required"})
		return
	}

	var req BlockDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Domain) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain is required"})
		return
	}

	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if err := h.contentRepo.BlockDomain(userID, domain); err != nil {
		slog.Error("Failed to block domain", "user", userID, "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block domain"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "blocked", "domain": domain})
}

func (h *Handler) ListSources(c *gin.Context) {
	list, err := h.sourceRepo.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	out := make([]SourceResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSourceResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"sources": out, "count": len(out)})
}

func (h *Handler) GetSource(c *gin.Context) {
	source, ok := h.lookupSource(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toSourceResponse(*source))
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.URL == nil || *req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	parsed, err := url.Parse(*req.URL)
	if err != nil || parsed.Hostname() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is not a valid absolute URL"})
		return
	}
	domain := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))

	source := database.Source{
		Name:                domain,
		Type:                database.SourceTypeFeed,
		URL:                 *req.URL,
		Domain:              domain,
		CrawlFrequencyHours: 24,
		Enabled:             true,
	}
	if req.Name != nil && *req.Name != "" {
		source.Name = *req.Name
	}
	if req.Type != nil {
		sourceType := database.SourceType(*req.Type)
		switch sourceType {
		case database.SourceTypeFeed, database.SourceTypeSitemap, database.SourceTypeSite:
			source.Type = sourceType
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source type"})
			return
		}
	}
	if req.CrawlFrequencyHours != nil && *req.CrawlFrequencyHours > 0 {
		source.CrawlFrequencyHours = *req.CrawlFrequencyHours
	}
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}
	if req.Topics != nil {
		source.Topics = *req.Topics
	}
	if req.ExtractLinks != nil {
		source.ExtractLinks = *req.ExtractLinks
	}

	id, err := h.sourceRepo.CreateSource(source)
	if err != nil {
		slog.Error("Database error", "operation", "create_source", "url", source.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create source"})
		return
	}

	created, err := h.sourceRepo.GetSource(id)
	if err != nil || created == nil {
		c.JSON(http.StatusCreated, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusCreated, toSourceResponse(*created))
}

func (h *Handler) UpdateSource(c *gin.Context) {
	id := c.Param("id")

	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	update := database.SourceUpdate{
		Name:                req.Name,
		URL:                 req.URL,
		CrawlFrequencyHours: req.CrawlFrequencyHours,
		Enabled:             req.Enabled,
		Topics:              req.Topics,
		ExtractLinks:        req.ExtractLinks,
	}
	if req.Type != nil {
		sourceType := database.SourceType(*req.Type)
		switch sourceType {
		case database.SourceTypeFeed, database.SourceTypeSitemap, database.SourceTypeSite:
			update.Type = &sourceType
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source type"})
			return
		}
	}
	if req.URL != nil {
		parsed, err := url.Parse(*req.URL)
		if err != nil || parsed.Hostname() == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url is not a valid absolute URL"})
			return
		}
		domain := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
		update.Domain = &domain
	}

	updated, err := h.sourceRepo.UpdateSource(id, update)
	if err != nil {
		slog.Error("Database error", "operation", "update_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update source"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	c.JSON(http.StatusOK, toSourceResponse(*updated))
}

func (h *Handler) DeleteSource(c *gin.Context) {
	id := c.Param("id")
	if err := h.sourceRepo.DeleteSource(id); err != nil {
		slog.Error("Database error", "operation", "delete_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) TriggerCrawl(c *gin.Context) {
	source, ok := h.lookupSource(c)
	if !ok {
		return
	}

	job, err := h.crawler.Crawl(c.Request.Context(), source)
	if err != nil {
		switch {
		case errors.Is(err, crawler.ErrSourceRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "Source is already being crawled"})
		case errors.Is(err, crawler.ErrConcurrencyExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Crawl concurrency limit reached, try again later"})
		case errors.Is(err, crawler.ErrSourceDisabled):
			c.JSON(http.StatusConflict, gin.H{"error": "Source is disabled"})
		default:
			slog.Error("Crawl failed", "source", source.ID, "error", err)
			if job != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Crawl failed",
					"job":   toCrawlJobResponse(*job),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Crawl failed"})
		}
		return
	}

	c.JSON(http.StatusOK, toCrawlJobResponse(*job))
}

func (h *Handler) CancelCrawl(c *gin.Context) {
	id := c.Param("id")
	if h.crawler.CancelCrawl(id) {
		c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "No active crawl for source"})
}

func (h *Handler) ListJobs(c *gin.Context) {
	id := c.Param("id")
	limit := defaultJobListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := h.jobRepo.ListJobsBySource(id, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_jobs", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	out := make([]CrawlJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toCrawlJobResponse(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out, "count": len(out)})
}

func (h *Handler) EnhanceContent(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ContentIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_ids is required"})
		return
	}

	batch := req.BatchSize
	if batch <= 0 {
		batch = defaultEnhanceBatch
	}
	if batch > maxEnhanceBatch {
		batch = maxEnhanceBatch
	}
	ids := req.ContentIDs
	if len(ids) > batch {
		ids = ids[:batch]
	}

	results := h.enricher.EnrichAll(c.Request.Context(), ids)
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (h *Handler) GetTopDomains(c *gin.Context) {
	limit := defaultTopDomainsLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	domains, err := h.reputation.TopDomains(limit)
	if err != nil {
		slog.Error("Database error", "operation", "top_domains", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list domains"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"domains": toReputationResponses(domains), "count": len(domains)})
}

func (h *Handler) GetBlacklistedDomains(c *gin.Context) {
	domains, err := h.reputation.Blacklisted()
	if err != nil {
		slog.Error("Database error", "operation", "blacklisted_domains", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list domains"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"domains": toReputationResponses(domains), "count": len(domains)})
}

func (h *Handler) GetDomainReputation(c *gin.Context) {
	domain := c.Param("domain")
	rep, err := h.reputation.Get(domain)
	if err != nil {
		slog.Error("Database error", "operation", "get_reputation", "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reputation"})
		return
	}
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Domain has no reputation record"})
		return
	}
	c.JSON(http.StatusOK, toReputationResponse(*rep))
}

func (h *Handler) RecomputeDomainReputation(c *gin.Context) {
	domain := c.Param("domain")
	rep, err := h.reputation.Update(domain)
	if err != nil {
		slog.Error("Reputation recompute failed", "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute reputation"})
		return
	}
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Domain has no content"})
		return
	}
	c.JSON(http.StatusOK, toReputationResponse(*rep))
}

func (h *Handler) BlacklistDomain(c *gin.Context) {
	domain := c.Param("domain")

	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	if err := h.reputation.Blacklist(domain, req.Reason); err != nil {
		slog.Error("Failed to blacklist domain", "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to blacklist domain"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "blacklisted", "domain": domain})
}

func (h *Handler) UnblacklistDomain(c *gin.Context) {
	domain := c.Param("domain")
	if err := h.reputation.Unblacklist(domain); err != nil {
		slog.Error("Failed to unblacklist domain", "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblacklist domain"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active", "domain": domain})
}

func (h *Handler) lookupSource(c *gin.Context) (*database.Source, bool) {
	id := c.Param("id")
	source, err := h.sourceRepo.GetSource(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load source"})
		return nil, false
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return nil, false
	}
	return source, true
}

func toReputationResponses(domains []database.DomainReputation) []ReputationResponse {
	out := make([]ReputationResponse, 0, len(domains))
	for _, rep := range domains {
		out = append(out, toReputationResponse(rep))
	}
	return out
}
