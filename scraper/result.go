package scraper

import "time"

// Result is the output of one successful scrape.
type Result struct {
	// RunID identifies the scrape in logs.
	RunID string

	// Trends holds the extracted trend texts in page order.
	Trends []string

	// CapturedAt is when extraction finished.
	CapturedAt time.Time
}
