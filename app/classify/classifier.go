package classify

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

const maxTopics = 3

// DefaultConfidence is the assignment confidence for keyword/domain
// classified topics.
const DefaultConfidence = 0.8

// Classifier maps a URL plus optional title/description to 1-3 topics from
// the vocabulary. Deliberately a cheap, deterministic heuristic: domain table
// first, then keyword matching, then a catch-all.
type Classifier struct {
	vocabulary *Vocabulary
}

func NewClassifier(vocabulary *Vocabulary) *Classifier {
	return &Classifier{vocabulary: vocabulary}
}

// Classify returns between 1 and 3 topics, in insertion order: the domain
// match first, then keyword matches in dictionary order.
func (c *Classifier) Classify(rawURL, title, description string) []string {
	var topics []string

	if domainTopic, ok := domainTopics[registeredDomain(rawURL)]; ok {
		if c.vocabulary.Contains(domainTopic) {
			topics = append(topics, domainTopic)
		}
	}

	text := strings.ToLower(rawURL + " " + title + " " + description)
	for _, entry := range keywordTopics {
		if !c.vocabulary.Contains(entry.topic) {
			continue
		}
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				topics = append(topics, entry.topic)
				break
			}
		}
	}

	topics = lo.Uniq(topics)

	if len(topics) == 0 {
		topics = []string{defaultTopic}
	}
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

// Validate drops names that are not in the vocabulary.
func (c *Classifier) Validate(topics []string) []string {
	return lo.Filter(topics, func(topic string, _ int) bool {
		return c.vocabulary.Contains(topic)
	})
}

// registeredDomain extracts the hostname with a leading "www." stripped.
func registeredDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
