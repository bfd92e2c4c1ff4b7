package classify

import (
	"log/slog"
	"sync"

	"github.com/driftfeed/driftfeed/app/database"
)

// fallbackVocabulary mirrors the seeded topics table so classification keeps
// working when the store is unreachable at startup.
var fallbackVocabulary = []string{
	"technology", "programming", "science", "space", "mathematics",
	"history", "art", "design", "music", "film",
	"photography", "literature", "philosophy", "psychology", "health",
	"fitness", "food", "travel", "nature", "environment",
	"politics", "economics", "business", "finance", "education",
	"diy", "crafts", "gaming", "sports", "culture",
	"language", "architecture", "engineering", "physics", "biology",
	"chemistry", "astronomy", "archaeology", "animals", "comics",
	"humor", "news", "writing", "curiosities",
}

// Vocabulary is the set of valid topic names, loaded from the store with an
// explicit lifecycle: Init once at startup, Refresh on demand.
type Vocabulary struct {
	topicRepo database.TopicRepository
	mu        sync.RWMutex
	names     map[string]struct{}
}

func NewVocabulary(topicRepo database.TopicRepository) *Vocabulary {
	return &Vocabulary{
		topicRepo: topicRepo,
		names:     make(map[string]struct{}),
	}
}

// Init loads the vocabulary from the store. On failure it substitutes the
// hardcoded fallback so classification never hard-fails.
func (v *Vocabulary) Init() {
	names, err := v.topicRepo.ListActiveTopicNames()
	if err != nil || len(names) == 0 {
		slog.Warn("Topic store unavailable, using fallback vocabulary",
			"fallback_size", len(fallbackVocabulary), "error", err)
		names = fallbackVocabulary
	}
	v.replace(names)
}

// Refresh re-reads the vocabulary from the store, keeping the current set on
// failure.
func (v *Vocabulary) Refresh() error {
	names, err := v.topicRepo.ListActiveTopicNames()
	if err != nil {
		return err
	}
	v.replace(names)
	return nil
}

func (v *Vocabulary) replace(names []string) {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	v.mu.Lock()
	v.names = set
	v.mu.Unlock()
}

func (v *Vocabulary) Contains(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.names[name]
	return ok
}

func (v *Vocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.names)
}
