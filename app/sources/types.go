package sources

import (
	"fmt"
	"time"
)

// Candidate is a URL harvested from a source, with whatever metadata the
// source offered.
type Candidate struct {
	URL          string
	Title        string
	Description  string
	LastModified *time.Time
}

// ReadError is a whole-source failure: the feed or sitemap could not be
// fetched or parsed. The acquisition engine fails the crawl job on it rather
// than skipping individual items, since a feed either parses or it doesn't.
type ReadError struct {
	URL string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read source %s: %v", e.URL, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
