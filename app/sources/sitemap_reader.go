package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"
)

// SitemapReader parses XML sitemaps and sitemap indexes into candidates.
type SitemapReader struct {
	httpClient *http.Client
	userAgent  string
}

func NewSitemapReader(httpClient *http.Client, userAgent string) *SitemapReader {
	return &SitemapReader{httpClient: httpClient, userAgent: userAgent}
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlSet struct {
	URLs []sitemapURL `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []sitemapURL `xml:"sitemap"`
}

// ParseSitemap fetches and parses a sitemap. A sitemap index is followed one
// level deep; child sitemap failures skip that child rather than failing the
// whole read.
func (r *SitemapReader) ParseSitemap(ctx context.Context, sitemapURL string) ([]Candidate, error) {
	data, err := fetchURL(ctx, r.httpClient, sitemapURL, r.userAgent)
	if err != nil {
		return nil, &ReadError{URL: sitemapURL, Err: err}
	}

	var set urlSet
	if err := xml.Unmarshal(data, &set); err == nil && len(set.URLs) > 0 {
		return r.toCandidates(set.URLs), nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err == nil && len(index.Sitemaps) > 0 {
		var candidates []Candidate
		for _, child := range index.Sitemaps {
			if child.Loc == "" {
				continue
			}
			childData, err := fetchURL(ctx, r.httpClient, child.Loc, r.userAgent)
			if err != nil {
				continue
			}
			var childSet urlSet
			if err := xml.Unmarshal(childData, &childSet); err != nil {
				continue
			}
			candidates = append(candidates, r.toCandidates(childSet.URLs)...)
		}
		return candidates, nil
	}

	return nil, &ReadError{URL: sitemapURL, Err: fmt.Errorf("not a recognizable sitemap")}
}

func (r *SitemapReader) toCandidates(urls []sitemapURL) []Candidate {
	candidates := make([]Candidate, 0, len(urls))
	for _, u := range urls {
		if u.Loc == "" {
			continue
		}
		candidate := Candidate{URL: u.Loc}
		if t := parseLastMod(u.LastMod); t != nil {
			candidate.LastModified = t
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// FilterByRecency keeps candidates modified within the trailing window.
// Entries with no timestamp are kept; an undated entry is assumed fresh.
func FilterByRecency(candidates []Candidate, days int) []Candidate {
	if days <= 0 {
		return candidates
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	recent := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.LastModified == nil || c.LastModified.After(cutoff) {
			recent = append(recent, c)
		}
	}
	return recent
}

func parseLastMod(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
