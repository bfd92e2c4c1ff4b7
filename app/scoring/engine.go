package scoring

import (
	"math/rand"
	"time"
)

// nowFunc is swapped out in tests that need fixed candidate ages.
var nowFunc = time.Now

// Engine computes a composite score per candidate. It is a pure function of
// its inputs apart from the injected randomness source, so scoring runs are
// fully replayable in tests.
type Engine struct {
	randFloat func() float64
}

func NewEngine() *Engine {
	return &Engine{randFloat: rand.Float64}
}

// NewEngineWithRand builds an engine with a deterministic randomness source.
// Intended for tests.
func NewEngineWithRand(randFloat func() float64) *Engine {
	return &Engine{randFloat: randFloat}
}

// Score ranks one candidate in the request's context. Stages: multiplicative
// core, exploration blend, epsilon-greedy jitter, context multiplier, clamp.
func (e *Engine) Score(candidate Candidate, ctx Context) Scored {
	ageDays := 0.0
	if !candidate.Item.CreatedAt.IsZero() {
		ageDays = nowFunc().Sub(candidate.Item.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
	}

	freshness := Freshness(ageDays)
	engagement := Engagement(candidate.Item.LikesCount, candidate.Item.SavesCount,
		candidate.Item.SharesCount, candidate.Item.ViewsCount)
	popularity := Popularity(engagement, ctx.GlobalAvgEngagement, ageDays)
	similarity, matched := Similarity(ctx.UserTopics, candidate.Assignments)

	// Personalization replaces plain similarity once the user has history.
	relevance := similarity
	if ctx.History != nil && ctx.History.TotalEvents > 0 {
		relevance = Personalization(ctx.History, candidate.Assignments,
			candidate.Item.Domain, candidate.DomainReputation)
	}

	core := e.coreScore(candidate, relevance, freshness, popularity)

	boost := ExplorationBoost(ctx.Wildness, similarity, popularity, e.randFloat)
	score := 0.8*core + 0.2*boost

	// Epsilon-greedy: occasionally perturb upward so unproven content gets
	// shown. Probability scales with wildness.
	epsilon := 0.05 + 0.05*(float64(ctx.Wildness)/100)
	if e.randFloat() < epsilon {
		score += e.randFloat() * 0.3
	}

	score *= e.contextMultiplier(ctx, similarity)
	score = clamp01(score)

	return Scored{
		Item:        candidate.Item,
		Score:       score,
		Reason:      GenerateReason(ctx.Wildness, matched, ageDays, popularity, candidate.Item.QualityScore),
		Similarity:  similarity,
		Freshness:   freshness,
		Popularity:  popularity,
		Exploration: boost,
		AgeDays:     ageDays,
		Matched:     matched,
	}
}

// coreScore is the multiplicative ranking formula, before any exploration or
// randomness is layered on.
func (e *Engine) coreScore(candidate Candidate, relevance, freshness, popularity float64) float64 {
	score := candidate.Item.BaseScore * candidate.Item.QualityScore
	score *= 0.5 + 0.5*relevance
	score *= 0.6 + 0.4*freshness
	score *= popularity
	score *= 0.8 + 0.4*candidate.DomainReputation
	return score
}

// contextMultiplier nudges scores by time of day and the user's historical
// behavior: evenings and chronic skippers lean toward diversity, heavy
// likers lean toward similarity.
func (e *Engine) contextMultiplier(ctx Context, similarity float64) float64 {
	mult := 1.0
	if ctx.TimeOfDay >= 18 && ctx.TimeOfDay <= 22 {
		mult += 0.05 * (1 - similarity)
	}
	if ctx.History != nil && ctx.History.TotalEvents > 0 {
		if ctx.History.SkipRate > 0.5 {
			mult += 0.1 * (1 - similarity)
		}
		if ctx.History.LikeRate > 0.6 {
			mult += 0.1 * similarity
		}
	}
	return mult
}
