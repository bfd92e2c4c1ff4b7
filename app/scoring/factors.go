package scoring

import (
	"math"

	"github.com/driftfeed/driftfeed/app/database"
)

const (
	// FreshnessHalfLifeDays is the age at which freshness halves.
	FreshnessHalfLifeDays = 14.0

	engagementPrior       = 0.5
	engagementPriorWeight = 10.0
)

// Freshness decays exponentially with age: 1.0 at age zero, halved every
// half-life.
func Freshness(ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-math.Ln2 * ageDays / FreshnessHalfLifeDays)
}

// BayesianSmooth blends an observed rate x/n with a prior belief weighted by
// a pseudo-count, returning the prior exactly when there is no data.
func BayesianSmooth(x, n, prior, priorWeight float64) float64 {
	if n == 0 {
		return prior
	}
	return (x + prior*priorWeight) / (n + priorWeight)
}

// Engagement computes the smoothed positive-interaction rate for an item.
func Engagement(likes, saves, shares, total int) float64 {
	positive := float64(likes) + 1.2*float64(saves) + 0.8*float64(shares)
	return BayesianSmooth(positive, float64(total), engagementPrior, engagementPriorWeight)
}

// Popularity relates an item's engagement to the global average, with a
// recency bonus for young items.
func Popularity(engagement, globalAvgEngagement, ageDays float64) float64 {
	return math.Min(1, engagement/math.Max(0.1, globalAvgEngagement)+math.Exp(-ageDays/7)*0.3)
}

// Similarity is the confidence-weighted match ratio between the user's topics
// and the candidate's topic assignments. Neutral 0.3 for users without
// preferences, low 0.2 for content without topics.
func Similarity(userTopics []string, assignments []database.TopicAssignment) (float64, []string) {
	if len(userTopics) == 0 {
		return 0.3, nil
	}
	if len(assignments) == 0 {
		return 0.2, nil
	}

	userSet := make(map[string]struct{}, len(userTopics))
	for _, t := range userTopics {
		userSet[t] = struct{}{}
	}

	var matchedConfidence, totalConfidence float64
	var matched []string
	for _, a := range assignments {
		totalConfidence += a.Confidence
		if _, ok := userSet[a.TopicName]; ok {
			matchedConfidence += a.Confidence
			matched = append(matched, a.TopicName)
		}
	}
	if totalConfidence == 0 {
		return 0.2, nil
	}

	return 0.3 + 0.7*(matchedConfidence/totalConfidence), matched
}

// Personalization scores a candidate against the user's interaction history:
// topic affinity dominates, with domain familiarity and domain reputation as
// secondary signals.
func Personalization(history *database.UserInteractionHistory, assignments []database.TopicAssignment, domain string, domainReputation float64) float64 {
	topicAffinity := topicAffinity(history, assignments)
	domainAffinity := math.Min(1, 0.5+0.2*math.Log(history.LikedDomains[domain]+1))
	return 0.6*topicAffinity + 0.2*domainAffinity + 0.2*domainReputation
}

// topicAffinity normalizes the user's net preference for the candidate's
// topics into [0,1] around a neutral 0.5.
func topicAffinity(history *database.UserInteractionHistory, assignments []database.TopicAssignment) float64 {
	var liked, disliked float64
	for _, a := range assignments {
		liked += history.LikedTopics[a.TopicName]
		disliked += history.DislikedTopics[a.TopicName]
	}
	if liked+disliked == 0 {
		return 0.5
	}
	raw := (liked - 0.5*disliked) / (liked + disliked)
	return clamp01(0.5 + 0.5*raw)
}

// ExplorationBoost shapes the serendipity of a candidate by wildness band:
// low wildness favors similarity, the middle band blends similarity away in
// favor of diversity, and high wildness actively prefers the unfamiliar with
// a random kick.
func ExplorationBoost(wildness int, similarity, popularity float64, randFloat func() float64) float64 {
	switch {
	case wildness < 20:
		return similarity * (0.8 + 0.2*popularity)
	case wildness < 70:
		t := float64(wildness-20) / 50
		return (1-t)*similarity + t*(1-similarity) + 0.2*popularity
	default:
		boost := 0.4*similarity + 0.7*(1-similarity) - 0.2*popularity + randFloat()*0.3
		return math.Max(0.1, boost)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
