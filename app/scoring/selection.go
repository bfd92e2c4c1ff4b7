package scoring

import (
	"math"
	"math/rand"
	"sort"

	"github.com/samber/lo"

	"github.com/driftfeed/driftfeed/app/database"
)

const maxEliteSize = 8

// Selector turns a ranked candidate list into one pick via
// wildness-controlled weighted randomness.
type Selector struct {
	randFloat func() float64
}

func NewSelector() *Selector {
	return &Selector{randFloat: rand.Float64}
}

// NewSelectorWithRand builds a selector with a deterministic randomness
// source. Intended for tests.
func NewSelectorWithRand(randFloat func() float64) *Selector {
	return &Selector{randFloat: randFloat}
}

// FilterPool drops session-seen items and user-blocked domains. When the
// filter empties the pool, the full pool is returned with reset=true: the
// user has seen everything, and the caller should tell them so.
func FilterPool(pool []database.ContentItem, seenIDs, blockedDomains []string) (filtered []database.ContentItem, reset bool) {
	seen := make(map[string]struct{}, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}
	blocked := make(map[string]struct{}, len(blockedDomains))
	for _, d := range blockedDomains {
		blocked[d] = struct{}{}
	}

	filtered = lo.Filter(pool, func(item database.ContentItem, _ int) bool {
		if _, ok := seen[item.ID]; ok {
			return false
		}
		_, ok := blocked[item.Domain]
		return !ok
	})

	if len(filtered) == 0 && len(pool) > 0 {
		return pool, true
	}
	return filtered, false
}

// SortByScore orders scored candidates descending, stably so equal scores
// keep their input order.
func SortByScore(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// Pick chooses one candidate from a list already sorted descending by score.
// With probability min(0.8, wildness/100) the pick is a weighted random draw
// over the elite set; otherwise the top candidate wins deterministically.
// At wildness zero the random branch has probability zero, so the top
// candidate is guaranteed.
func (s *Selector) Pick(ranked []Scored, wildness int) *Scored {
	if len(ranked) == 0 {
		return nil
	}

	eliteSize := int(math.Ceil(float64(len(ranked)) * 0.3))
	if eliteSize < 1 {
		eliteSize = 1
	}
	if eliteSize > maxEliteSize {
		eliteSize = maxEliteSize
	}

	randomProbability := math.Min(0.8, float64(wildness)/100)
	if eliteSize > 1 && s.randFloat() < randomProbability {
		return s.weightedPick(ranked[:eliteSize])
	}

	return &ranked[0]
}

// weightedPick samples the elite set with exponentially decaying weights:
// rank 0 gets 2^(n-1), the last elite gets 1.
func (s *Selector) weightedPick(elite []Scored) *Scored {
	n := len(elite)
	total := math.Pow(2, float64(n)) - 1

	target := s.randFloat() * total
	var cumulative float64
	for rank := 0; rank < n; rank++ {
		cumulative += math.Pow(2, float64(n-rank-1))
		if target < cumulative {
			return &elite[rank]
		}
	}
	return &elite[n-1]
}
