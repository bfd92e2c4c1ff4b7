package policy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	cacheTTL     = 24 * time.Hour
	fetchTimeout = 10 * time.Second
	maxBodySize  = 512 * 1024
)

type cacheEntry struct {
	robots    *Robots
	fetchedAt time.Time
}

// Client fetches and caches per-domain crawl policies. A fetch or parse
// failure yields the empty policy, which allows everything; that permissive
// default is deliberate and covered by tests, not an oversight.
type Client struct {
	httpClient        *http.Client
	userAgent         string
	defaultCrawlDelay time.Duration
	mu                sync.RWMutex
	cache             map[string]cacheEntry
}

func NewClient(httpClient *http.Client, userAgent string, defaultCrawlDelay time.Duration) *Client {
	return &Client{
		httpClient:        httpClient,
		userAgent:         userAgent,
		defaultCrawlDelay: defaultCrawlDelay,
		cache:             make(map[string]cacheEntry),
	}
}

// GetPolicy returns the domain's policy, fetching robots.txt on a cache miss.
// Failures are cached as the empty policy so an unreachable domain is not
// re-fetched on every URL.
func (c *Client) GetPolicy(ctx context.Context, domain string) *Robots {
	c.mu.RLock()
	entry, ok := c.cache[domain]
	c.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		return entry.robots
	}

	robots := c.fetch(ctx, domain)

	c.mu.Lock()
	c.cache[domain] = cacheEntry{robots: robots, fetchedAt: time.Now()}
	c.mu.Unlock()

	return robots
}

// IsAllowed reports whether the configured agent may fetch the URL.
// Unparseable URLs are allowed through; the fetch itself will fail with a
// better error.
func (c *Client) IsAllowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	return c.GetPolicy(ctx, u.Hostname()).IsAllowed(u.Path, c.userAgent)
}

// CrawlDelay returns the domain's declared crawl delay, or the configured
// default when the policy declares none.
func (c *Client) CrawlDelay(ctx context.Context, domain string) time.Duration {
	if d := c.GetPolicy(ctx, domain).CrawlDelay(c.userAgent); d > 0 {
		return d
	}
	return c.defaultCrawlDelay
}

// SitemapURLs returns the sitemap locations the domain declares in robots.txt.
func (c *Client) SitemapURLs(ctx context.Context, domain string) []string {
	return c.GetPolicy(ctx, domain).SitemapURLs()
}

// Invalidate drops the cached policy for a domain.
func (c *Client) Invalidate(domain string) {
	c.mu.Lock()
	delete(c.cache, domain)
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, domain string) *Robots {
	robotsURL := fmt.Sprintf("https://%s/robots.txt", domain)

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		slog.Warn("Invalid robots.txt URL, assuming no restrictions", "domain", domain, "error", err)
		return &Robots{}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Failed to fetch robots.txt, assuming no restrictions", "domain", domain, "error", err)
		return &Robots{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("No robots.txt available", "domain", domain, "status", resp.StatusCode)
		return &Robots{}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		slog.Warn("Failed to read robots.txt, assuming no restrictions", "domain", domain, "error", err)
		return &Robots{}
	}

	return ParseRobots(string(data))
}
