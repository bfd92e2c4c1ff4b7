package scoring

import (
	"testing"

	"github.com/driftfeed/driftfeed/app/database"
)

func makePool(ids ...string) []database.ContentItem {
	pool := make([]database.ContentItem, 0, len(ids))
	for _, id := range ids {
		pool = append(pool, database.ContentItem{ID: id, Domain: id + ".com"})
	}
	return pool
}

func TestFilterPoolDropsSeenItems(t *testing.T) {
	pool := makePool("a", "b", "c")
	filtered, reset := FilterPool(pool, []string{"b"}, nil)
	if reset {
		t.Error("Expected no reset with remaining candidates")
	}
	if len(filtered) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(filtered))
	}
	for _, item := range filtered {
		if item.ID == "b" {
			t.Error("Expected seen item 'b' to be filtered out")
		}
	}
}

func TestFilterPoolDropsBlockedDomains(t *testing.T) {
	pool := makePool("a", "b")
	filtered, reset := FilterPool(pool, nil, []string{"a.com"})
	if reset {
		t.Error("Expected no reset with remaining candidates")
	}
	if len(filtered) != 1 || filtered[0].ID != "b" {
		t.Errorf("Expected only 'b' to survive, got %v", filtered)
	}
}

func TestFilterPoolResetWhenExhausted(t *testing.T) {
	pool := makePool("a", "b")
	filtered, reset := FilterPool(pool, []string{"a", "b"}, nil)
	if !reset {
		t.Error("Expected reset when every candidate has been seen")
	}
	if len(filtered) != 2 {
		t.Errorf("Expected the full pool back on reset, got %d items", len(filtered))
	}
}

func TestFilterPoolEmptyInput(t *testing.T) {
	filtered, reset := FilterPool(nil, []string{"a"}, nil)
	if reset {
		t.Error("Expected no reset for an empty pool")
	}
	if len(filtered) != 0 {
		t.Errorf("Expected empty result, got %d items", len(filtered))
	}
}

func TestSortByScoreDescendingAndStable(t *testing.T) {
	scored := []Scored{
		{Item: database.ContentItem{ID: "low"}, Score: 0.2},
		{Item: database.ContentItem{ID: "tie-first"}, Score: 0.5},
		{Item: database.ContentItem{ID: "tie-second"}, Score: 0.5},
		{Item: database.ContentItem{ID: "high"}, Score: 0.9},
	}
	SortByScore(scored)

	expected := []string{"high", "tie-first", "tie-second", "low"}
	for i, id := range expected {
		if scored[i].Item.ID != id {
			t.Errorf("Expected %s at position %d, got %s", id, i, scored[i].Item.ID)
		}
	}
}

func TestPickEmptyList(t *testing.T) {
	selector := NewSelector()
	if got := selector.Pick(nil, 50); got != nil {
		t.Errorf("Expected nil for empty list, got %v", got)
	}
}

func TestPickZeroWildnessAlwaysTop(t *testing.T) {
	// Even a randomness source pinned to 0 (always below any positive
	// threshold) must not trigger the random branch at wildness zero
	selector := NewSelectorWithRand(func() float64 { return 0 })
	ranked := []Scored{
		{Item: database.ContentItem{ID: "top"}, Score: 0.9},
		{Item: database.ContentItem{ID: "second"}, Score: 0.5},
		{Item: database.ContentItem{ID: "third"}, Score: 0.1},
	}

	for i := 0; i < 20; i++ {
		got := selector.Pick(ranked, 0)
		if got.Item.ID != "top" {
			t.Fatalf("Expected top candidate at wildness 0, got %s", got.Item.ID)
		}
	}
}

func TestPickSingleCandidate(t *testing.T) {
	selector := NewSelectorWithRand(func() float64 { return 0 })
	ranked := []Scored{{Item: database.ContentItem{ID: "only"}, Score: 0.5}}
	got := selector.Pick(ranked, 100)
	if got == nil || got.Item.ID != "only" {
		t.Errorf("Expected the only candidate, got %v", got)
	}
}

func TestPickHighWildnessDrawsFromElite(t *testing.T) {
	// First call decides the branch (0 < 0.8 takes the random draw), the
	// second drives the weighted pick toward the end of the elite set
	calls := 0
	selector := NewSelectorWithRand(func() float64 {
		calls++
		if calls == 1 {
			return 0
		}
		return 0.99
	})

	ranked := make([]Scored, 10)
	for i := range ranked {
		ranked[i] = Scored{Item: database.ContentItem{ID: string(rune('a' + i))}, Score: 1.0 - float64(i)*0.05}
	}

	got := selector.Pick(ranked, 80)
	// Elite size is ceil(10*0.3) = 3, so the pick must come from the top 3
	if got.Item.ID != "a" && got.Item.ID != "b" && got.Item.ID != "c" {
		t.Errorf("Expected a pick from the elite set, got %s", got.Item.ID)
	}
	// target = 0.99 * 7 = 6.93, past the cumulative weights 4 and 6
	if got.Item.ID != "c" {
		t.Errorf("Expected the last elite with a high draw, got %s", got.Item.ID)
	}
}

func TestWeightedPickFavorsTopRank(t *testing.T) {
	// target = 0.1 * 7 = 0.7, under the rank-0 weight of 4
	calls := 0
	selector := NewSelectorWithRand(func() float64 {
		calls++
		if calls == 1 {
			return 0
		}
		return 0.1
	})

	ranked := make([]Scored, 10)
	for i := range ranked {
		ranked[i] = Scored{Item: database.ContentItem{ID: string(rune('a' + i))}, Score: 1.0 - float64(i)*0.05}
	}

	got := selector.Pick(ranked, 80)
	if got.Item.ID != "a" {
		t.Errorf("Expected rank 0 with a low draw, got %s", got.Item.ID)
	}
}

func TestEliteSizeCap(t *testing.T) {
	// With 100 candidates, ceil(30) would exceed the cap of 8: a draw aimed
	// at the very end of the elite must still land within the top 8
	calls := 0
	selector := NewSelectorWithRand(func() float64 {
		calls++
		if calls == 1 {
			return 0
		}
		return 0.9999
	})

	ranked := make([]Scored, 100)
	for i := range ranked {
		ranked[i] = Scored{Item: database.ContentItem{ID: string(rune('0' + i%10))}, Score: 1.0 - float64(i)*0.005}
	}
	// Give each of the top 8 a unique id to assert on
	letters := "abcdefgh"
	for i := 0; i < 8; i++ {
		ranked[i].Item.ID = string(letters[i])
	}

	got := selector.Pick(ranked, 100)
	found := false
	for i := 0; i < 8; i++ {
		if got.Item.ID == string(letters[i]) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected pick within the capped elite of 8, got %s", got.Item.ID)
	}
}
