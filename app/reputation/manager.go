package reputation

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/driftfeed/driftfeed/app/database"
)

const (
	// Auto-blacklist thresholds
	blacklistFlagCount      = 5
	blacklistRejectionRatio = 0.8
	blacklistMinScore       = 0.2

	// Activity decay: full score within the grace period, exponential decay after
	activityGraceDays = 90
	activityDecayDays = 180

	// Pause between domains in a batch recompute to bound store load
	defaultBatchDelay = 100 * time.Millisecond
)

// Manager maintains per-domain trust and reputation scores from moderation
// outcomes and engagement statistics.
type Manager struct {
	contentRepo    database.ContentRepository
	reputationRepo database.ReputationRepository
	batchDelay     time.Duration
	now            func() time.Time
}

func NewManager(contentRepo database.ContentRepository, reputationRepo database.ReputationRepository) *Manager {
	return &Manager{
		contentRepo:    contentRepo,
		reputationRepo: reputationRepo,
		batchDelay:     defaultBatchDelay,
		now:            time.Now,
	}
}

// Update recomputes and persists the domain's reputation from its current
// content statistics. A manual blacklist survives recomputes; only
// Unblacklist clears it.
func (m *Manager) Update(domain string) (*database.DomainReputation, error) {
	stats, err := m.contentRepo.GetDomainStats(domain)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", domain, err)
	}

	existing, err := m.reputationRepo.GetReputation(domain)
	if err != nil {
		return nil, fmt.Errorf("failed to load reputation for %s: %w", domain, err)
	}

	rep := m.compute(stats)
	if existing != nil && existing.IsBlacklisted {
		rep.IsBlacklisted = true
		rep.BlacklistReason = existing.BlacklistReason
	}

	if !rep.IsBlacklisted {
		if reason := m.autoBlacklistReason(rep); reason != "" {
			rep.IsBlacklisted = true
			rep.BlacklistReason = reason
			slog.Info("Domain auto-blacklisted", "domain", domain, "reason", reason)
		}
	}

	if err := m.reputationRepo.UpsertReputation(rep); err != nil {
		return nil, fmt.Errorf("failed to persist reputation for %s: %w", domain, err)
	}
	return &rep, nil
}

// Get returns the stored reputation, or nil when the domain is unknown.
func (m *Manager) Get(domain string) (*database.DomainReputation, error) {
	return m.reputationRepo.GetReputation(domain)
}

func (m *Manager) TopDomains(limit int) ([]database.DomainReputation, error) {
	return m.reputationRepo.TopDomains(limit)
}

func (m *Manager) Blacklisted() ([]database.DomainReputation, error) {
	return m.reputationRepo.ListBlacklisted()
}

func (m *Manager) Blacklist(domain, reason string) error {
	return m.reputationRepo.SetBlacklisted(domain, true, reason)
}

// Unblacklist recomputes the domain's score, then force-clears the flag
// regardless of what the recompute concluded. Explicit operator override.
func (m *Manager) Unblacklist(domain string) error {
	if existing, err := m.reputationRepo.GetReputation(domain); err == nil && existing != nil {
		existing.IsBlacklisted = false
		existing.BlacklistReason = ""
		if err := m.reputationRepo.UpsertReputation(*existing); err != nil {
			return err
		}
	}

	if _, err := m.Update(domain); err != nil {
		return err
	}
	return m.reputationRepo.SetBlacklisted(domain, false, "")
}

// BatchResult reports the outcome of an UpdateAll run.
type BatchResult struct {
	Processed int
	Updated   int
	Errored   int
}

// UpdateAll recomputes reputation for every domain with content created
// within the trailing window. A single domain's failure is counted and
// skipped, never aborting the batch.
func (m *Manager) UpdateAll(daysThreshold int) (*BatchResult, error) {
	since := m.now().AddDate(0, 0, -daysThreshold)
	domains, err := m.contentRepo.GetActiveDomains(since)
	if err != nil {
		return nil, fmt.Errorf("failed to list active domains: %w", err)
	}

	result := &BatchResult{}
	for i, domain := range domains {
		result.Processed++
		if _, err := m.Update(domain); err != nil {
			result.Errored++
			slog.Warn("Reputation update failed, skipping domain", "domain", domain, "error", err)
			continue
		}
		result.Updated++

		if i < len(domains)-1 {
			time.Sleep(m.batchDelay)
		}
	}

	slog.Info("Reputation batch update completed",
		"processed", result.Processed, "updated", result.Updated, "errored", result.Errored)
	return result, nil
}

func (m *Manager) compute(stats *database.DomainStats) database.DomainReputation {
	avgQuality := clamp01(stats.AvgQualityScore)
	avgEngagement := clamp01(stats.AvgEngagementRate)

	moderationRatio := 0.5
	if moderated := stats.ApprovedCount + stats.RejectedCount; moderated > 0 {
		moderationRatio = float64(stats.ApprovedCount) / float64(moderated)
	}

	flagPenalty := math.Max(0, 1-0.1*float64(stats.FlaggedCount))

	trust := 0.4*moderationRatio + 0.3*avgQuality + 0.2*avgEngagement + 0.1*flagPenalty

	score := trust*0.6 + avgQuality*0.4
	score *= 0.8 + 0.4*avgEngagement
	score *= math.Min(1, math.Log10(float64(stats.TotalContent)+1)/2)
	score *= m.activityDecay(stats.LastContentAt)

	return database.DomainReputation{
		Domain:            stats.Domain,
		Score:             clamp01(score),
		TrustScore:        clamp01(trust),
		ApprovedCount:     stats.ApprovedCount,
		RejectedCount:     stats.RejectedCount,
		FlaggedCount:      stats.FlaggedCount,
		AvgQualityScore:   stats.AvgQualityScore,
		AvgEngagementRate: stats.AvgEngagementRate,
		TotalContent:      stats.TotalContent,
	}
}

func (m *Manager) activityDecay(lastContentAt *time.Time) float64 {
	if lastContentAt == nil {
		return 1.0
	}
	daysSince := m.now().Sub(*lastContentAt).Hours() / 24
	if daysSince <= activityGraceDays {
		return 1.0
	}
	return math.Exp(-(daysSince - activityGraceDays) / activityDecayDays)
}

func (m *Manager) autoBlacklistReason(rep database.DomainReputation) string {
	if rep.FlaggedCount >= blacklistFlagCount {
		return fmt.Sprintf("flagged %d times", rep.FlaggedCount)
	}
	if moderated := rep.ApprovedCount + rep.RejectedCount; moderated > 0 {
		if ratio := float64(rep.RejectedCount) / float64(moderated); ratio > blacklistRejectionRatio {
			return fmt.Sprintf("rejection ratio %.2f", ratio)
		}
	}
	if rep.TotalContent > 0 && rep.Score < blacklistMinScore {
		return fmt.Sprintf("reputation score %.2f below threshold", rep.Score)
	}
	return ""
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
