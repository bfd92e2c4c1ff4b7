package crawler

import (
	"errors"
)

var (
	// ErrConcurrencyExceeded rejects a crawl request outright when the
	// engine is already at its concurrency ceiling. No job is created.
	ErrConcurrencyExceeded = errors.New("crawl concurrency limit reached")

	// ErrSourceRunning rejects a second concurrent crawl of the same source.
	ErrSourceRunning = errors.New("source already has a running crawl")

	// ErrSourceDisabled rejects crawls of disabled sources.
	ErrSourceDisabled = errors.New("source is disabled")
)
