package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"golang.org/x/net/html/charset"
)

var conventionalFeedPaths = []string{"/feed", "/rss", "/rss.xml", "/feed.xml", "/atom.xml"}

var conventionalSitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml"}

// Discoverer locates feeds and sitemaps for sites that only give us a
// homepage URL.
type Discoverer struct {
	httpClient *http.Client
	userAgent  string
}

func NewDiscoverer(httpClient *http.Client, userAgent string) *Discoverer {
	return &Discoverer{httpClient: httpClient, userAgent: userAgent}
}

// DiscoverFeeds scans the page's <link> tags for declared feeds, then probes
// the conventional feed paths. Results are absolute URLs, deduplicated.
func (d *Discoverer) DiscoverFeeds(ctx context.Context, siteURL string) ([]string, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site URL: %w", err)
	}

	var found []string

	if data, err := fetchURL(ctx, d.httpClient, siteURL, d.userAgent); err == nil {
		found = append(found, d.feedLinksFromHTML(data, base)...)
	}

	for _, path := range conventionalFeedPaths {
		probe := base.ResolveReference(&url.URL{Path: path}).String()
		if d.exists(ctx, probe) {
			found = append(found, probe)
		}
	}

	return lo.Uniq(found), nil
}

// DiscoverSitemaps probes the conventional sitemap locations for a domain
// with lightweight existence checks.
func (d *Discoverer) DiscoverSitemaps(ctx context.Context, domain string) []string {
	var found []string
	for _, path := range conventionalSitemapPaths {
		probe := fmt.Sprintf("https://%s%s", domain, path)
		if d.exists(ctx, probe) {
			found = append(found, probe)
		}
	}
	return found
}

func (d *Discoverer) feedLinksFromHTML(data []byte, base *url.URL) []string {
	reader, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		reader = bytes.NewReader(data)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		feedType := strings.ToLower(s.AttrOr("type", ""))
		if !strings.Contains(feedType, "rss") && !strings.Contains(feedType, "atom") {
			return
		}
		href := s.AttrOr("href", "")
		if href == "" {
			return
		}
		if u, err := url.Parse(href); err == nil {
			links = append(links, base.ResolveReference(u).String())
		}
	})

	return links
}

func (d *Discoverer) exists(ctx context.Context, probeURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
