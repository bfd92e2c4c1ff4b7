package api

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/scoring"
)

// ErrNoCandidates means the content pool is empty even before seen filtering.
var ErrNoCandidates = errors.New("no candidates available")

const (
	candidatePoolSize = 100
	fallbackRepScore  = 0.5
)

// Recommender assembles a per-request scoring context, scores the candidate
// pool and picks a single discovery.
type Recommender struct {
	contentRepo    database.ContentRepository
	reputationRepo database.ReputationRepository
	engine         *scoring.Engine
	selector       *scoring.Selector
}

func NewRecommender(contentRepo database.ContentRepository,
	reputationRepo database.ReputationRepository,
	engine *scoring.Engine, selector *scoring.Selector) *Recommender {
	return &Recommender{
		contentRepo:    contentRepo,
		reputationRepo: reputationRepo,
		engine:         engine,
		selector:       selector,
	}
}

// Recommend returns the selected discovery for the user, plus whether the seen
// filter exhausted the pool and was reset. A view event is recorded for the
// returned item.
func (r *Recommender) Recommend(userID string, wildness int, seenIDs []string) (*scoring.Scored, bool, error) {
	pool, err := r.contentRepo.GetCandidates(candidatePoolSize)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load candidate pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, false, ErrNoCandidates
	}

	blocked, err := r.contentRepo.GetBlockedDomains(userID)
	if err != nil {
		slog.Warn("Failed to load blocked domains, proceeding without", "user", userID, "error", err)
		blocked = nil
	}

	filtered, reset := scoring.FilterPool(pool, seenIDs, blocked)
	if len(filtered) == 0 {
		return nil, false, ErrNoCandidates
	}

	sctx, err := r.buildContext(userID, wildness)
	if err != nil {
		return nil, false, err
	}

	reputations := make(map[string]float64)
	scored := make([]scoring.Scored, 0, len(filtered))
	for _, item := range filtered {
		assignments, err := r.contentRepo.GetAssignments(item.ID)
		if err != nil {
			slog.Warn("Failed to load topic assignments", "content", item.ID, "error", err)
			assignments = nil
		}
		scored = append(scored, r.engine.Score(scoring.Candidate{
			Item:             item,
			Assignments:      assignments,
			DomainReputation: r.domainReputation(reputations, item.Domain),
		}, sctx))
	}

	scoring.SortByScore(scored)
	picked := r.selector.Pick(scored, wildness)
	if picked == nil {
		return nil, false, ErrNoCandidates
	}

	if err := r.contentRepo.RecordFeedback(userID, picked.Item.ID, database.FeedbackView); err != nil {
		slog.Warn("Failed to record view", "user", userID, "content", picked.Item.ID, "error", err)
	}

	return picked, reset, nil
}

func (r *Recommender) buildContext(userID string, wildness int) (scoring.Context, error) {
	now := time.Now()
	sctx := scoring.Context{
		Wildness:  wildness,
		TimeOfDay: now.Hour(),
		DayOfWeek: now.Weekday(),
	}

	history, err := r.contentRepo.GetUserHistory(userID)
	if err != nil {
		return sctx, fmt.Errorf("failed to load user history: %w", err)
	}
	if history != nil && history.TotalEvents > 0 {
		sctx.History = history
		sctx.UserTopics = preferredTopics(history)
	}

	globalAvg, err := r.contentRepo.GetGlobalAvgEngagement()
	if err != nil {
		slog.Warn("Failed to load global engagement average", "error", err)
		globalAvg = 0
	}
	sctx.GlobalAvgEngagement = globalAvg

	return sctx, nil
}

func (r *Recommender) domainReputation(cache map[string]float64, domain string) float64 {
	if score, ok := cache[domain]; ok {
		return score
	}
	score := fallbackRepScore
	rep, err := r.reputationRepo.GetReputation(domain)
	if err != nil {
		slog.Warn("Failed to load domain reputation", "domain", domain, "error", err)
	} else if rep != nil {
		score = rep.Score
	}
	cache[domain] = score
	return score
}

// preferredTopics derives the user's topic preferences from accumulated
// feedback, strongest affinity first.
func preferredTopics(history *database.UserInteractionHistory) []string {
	topics := make([]string, 0, len(history.LikedTopics))
	for topic, weight := range history.LikedTopics {
		if weight > 0 {
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool {
		if history.LikedTopics[topics[i]] != history.LikedTopics[topics[j]] {
			return history.LikedTopics[topics[i]] > history.LikedTopics[topics[j]]
		}
		return topics[i] < topics[j]
	})
	return topics
}
