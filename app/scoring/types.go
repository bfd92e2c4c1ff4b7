package scoring

import (
	"time"

	"github.com/driftfeed/driftfeed/app/database"
)

// Context is the per-request scoring input. Wildness is the 0-100 user knob
// trading relevance for serendipity.
type Context struct {
	UserTopics          []string
	Wildness            int
	History             *database.UserInteractionHistory
	TimeOfDay           int
	DayOfWeek           time.Weekday
	GlobalAvgEngagement float64
}

// Candidate bundles a content item with the inputs scoring needs alongside it.
type Candidate struct {
	Item             database.ContentItem
	Assignments      []database.TopicAssignment
	DomainReputation float64
}

// Scored is one ranked recommendation.
type Scored struct {
	Item   database.ContentItem
	Score  float64
	Reason string

	// Component values kept for explanation and tests
	Similarity  float64
	Freshness   float64
	Popularity  float64
	Exploration float64
	AgeDays     float64
	Matched     []string
}
