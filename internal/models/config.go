package models

import "time"

// CrawlOptions contains runtime options shared by the crawl components.
type CrawlOptions struct {
	BaseURL          string
	Timeout          time.Duration
	DispatchDelay    time.Duration
	Workers          int
	EmailConcurrency int
	IncludeLastPage  bool
}
