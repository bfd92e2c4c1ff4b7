package policy

import (
	"bufio"
	"strings"
	"time"
)

type rule struct {
	path  string
	allow bool
}

type group struct {
	agents     []string
	rules      []rule
	crawlDelay time.Duration
}

// Robots is a parsed robots.txt document. The zero value is the empty policy:
// everything allowed, no crawl delay, no declared sitemaps.
type Robots struct {
	groups   []group
	sitemaps []string
}

// ParseRobots parses robots.txt content. Unknown directives are skipped; a
// document that fails to yield any group is simply the empty policy.
func ParseRobots(data string) *Robots {
	r := &Robots{}

	var current *group
	inGroup := false

	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			// consecutive user-agent lines share one group
			if current == nil || inGroup {
				r.groups = append(r.groups, group{})
				current = &r.groups[len(r.groups)-1]
				inGroup = false
			}
			current.agents = append(current.agents, strings.ToLower(value))
		case "allow", "disallow":
			if current == nil {
				continue
			}
			inGroup = true
			// a trailing * is redundant under prefix matching
			value = strings.TrimSuffix(value, "*")
			if value != "" {
				current.rules = append(current.rules, rule{path: value, allow: field == "allow"})
			}
		case "crawl-delay":
			if current == nil {
				continue
			}
			inGroup = true
			if d, err := time.ParseDuration(value + "s"); err == nil && d > 0 {
				current.crawlDelay = d
			}
		case "sitemap":
			if value != "" {
				r.sitemaps = append(r.sitemaps, value)
			}
		}
	}

	return r
}

// IsAllowed reports whether the agent may fetch the path. Only an explicit
// matching Disallow rule denies; no match at all means allowed.
func (r *Robots) IsAllowed(path, agent string) bool {
	if path == "" {
		path = "/"
	}

	g := r.findGroup(agent)
	if g == nil {
		return true
	}

	// longest matching rule wins, Allow breaks ties
	var best *rule
	bestLen := -1
	for i := range g.rules {
		ru := &g.rules[i]
		if !strings.HasPrefix(path, ru.path) {
			continue
		}
		if len(ru.path) > bestLen || (len(ru.path) == bestLen && ru.allow) {
			best = ru
			bestLen = len(ru.path)
		}
	}

	if best == nil {
		return true
	}
	return best.allow
}

// CrawlDelay returns the crawl delay declared for the agent, or zero when the
// document declares none.
func (r *Robots) CrawlDelay(agent string) time.Duration {
	g := r.findGroup(agent)
	if g == nil {
		return 0
	}
	return g.crawlDelay
}

// SitemapURLs returns the sitemap locations declared by the document.
func (r *Robots) SitemapURLs() []string {
	return r.sitemaps
}

// findGroup prefers a group naming the agent over the wildcard group.
func (r *Robots) findGroup(agent string) *group {
	agent = strings.ToLower(agent)

	var wildcard *group
	for i := range r.groups {
		g := &r.groups[i]
		for _, a := range g.agents {
			if a == "*" {
				if wildcard == nil {
					wildcard = g
				}
				continue
			}
			if strings.Contains(agent, a) {
				return g
			}
		}
	}
	return wildcard
}
