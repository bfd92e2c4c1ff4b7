package scoring

import (
	"fmt"
	"strings"
)

// GenerateReason produces the human-readable explanation for a pick. A fixed
// priority cascade: the first template whose conditions hold wins, so the
// same inputs always explain the same way.
func GenerateReason(wildness int, matched []string, ageDays, popularity, quality float64) string {
	veryFresh := ageDays < 1
	fresh := ageDays < 3
	trending := popularity > 0.7
	popular := popularity > 0.5
	highQuality := quality > 0.7
	topicMatch := len(matched) > 0
	firstTopic := ""
	if topicMatch {
		firstTopic = matched[0]
	}

	switch {
	case veryFresh && trending:
		return "Hot off the press and trending right now"
	case len(matched) >= 2 && fresh:
		return fmt.Sprintf("Fresh find matching your interests in %s", strings.Join(matched, " and "))
	case trending && topicMatch:
		return fmt.Sprintf("Trending in %s", firstTopic)
	case popular && highQuality && topicMatch:
		return fmt.Sprintf("A popular, well-regarded read in %s", firstTopic)
	case topicMatch && highQuality:
		return fmt.Sprintf("High-quality content in %s", firstTopic)
	case fresh && highQuality:
		return "A fresh, high-quality discovery"
	case wildness >= 70 && !topicMatch:
		return "A wild leap outside your usual territory"
	case topicMatch:
		return fmt.Sprintf("Matches your interest in %s", firstTopic)
	case highQuality:
		return "A well-regarded page worth your time"
	case wildness >= 40:
		return "Something unexpected, courtesy of your wildness setting"
	default:
		return "A serendipitous find"
	}
}
