package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/leadcli/internal/locale"
	"github.com/jimezsa/leadcli/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Crawler walks every result page of a query and enriches the listings
// with website emails.
type Crawler struct {
	directory Directory
	emails    EmailFinder
	opts      models.CrawlOptions
	logger    zerolog.Logger
}

// NewCrawler builds a crawler. A nil emails finder skips website enrichment
// and a zero DispatchDelay dispatches every page at once.
func NewCrawler(directory Directory, emails EmailFinder, opts models.CrawlOptions, logger zerolog.Logger) *Crawler {
	return &Crawler{
		directory: directory,
		emails:    emails,
		opts:      opts,
		logger:    logger,
	}
}

// Crawl returns every lead found for query in no particular order. A failed
// first page yields no leads; any later failure only drops that page.
func (c *Crawler) Crawl(ctx context.Context, query models.SearchQuery) []models.Lead {
	logger := c.logger.With().
		Str("crawl_id", uuid.NewString()).
		Str("site", c.directory.Name()).
		Str("keyword", query.Keyword).
		Str("location", query.Location).
		Logger()

	first, err := c.directory.FetchPage(ctx, models.PageRequest{Query: query})
	if err != nil {
		logger.Warn().Err(err).Msg("first page unavailable, query yields no leads")
		return nil
	}

	pages := c.directory.PageCount(first)
	last := lastPage(pages, c.opts.IncludeLastPage)
	logger.Info().Int("pages", pages).Int("last_page", last).Msg("resolved page count")

	var (
		collection Collection
		group      errgroup.Group
		limiter    = rate.NewLimiter(dispatchLimit(c.opts.DispatchDelay), 1)
	)
	if c.opts.Workers > 0 {
		group.SetLimit(c.opts.Workers)
	}

	for page := 1; page <= last; page++ {
		if err := limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Int("page", page).Msg("dispatch stopped")
			break
		}
		logger.Info().Int("page", page).Msg("scraping page")
		page := page
		group.Go(func() error {
			c.scrapePage(ctx, query, page, &collection, logger)
			return nil
		})
	}
	_ = group.Wait()

	leads := collection.Leads()
	locale.Apply(leads)
	logger.Info().Int("leads", len(leads)).Msg("crawl complete")
	return leads
}

func (c *Crawler) scrapePage(ctx context.Context, query models.SearchQuery, page int, collection *Collection, parent zerolog.Logger) {
	logger := parent.With().Int("page", page).Logger()

	doc, err := c.directory.FetchPage(ctx, models.PageRequest{Query: query, Page: page})
	if err != nil {
		logger.Warn().Err(err).Msg("page unavailable, skipping")
		return
	}

	leads := c.directory.ParseListings(doc)
	for i := range leads {
		if c.emails != nil && leads[i].Website != "" {
			leads[i].Email = c.emails.Resolve(ctx, leads[i].Website)
		}
		logger.Debug().
			Str("name", leads[i].BusinessName).
			Str("category", leads[i].Category()).
			Str("phone", leads[i].Phone).
			Str("street", leads[i].Street).
			Str("locale", leads[i].Locale).
			Str("website", leads[i].Website).
			Str("email", leads[i].Email).
			Str("link", leads[i].Link).
			Msg("listing parsed")
	}

	collection.Append(leads...)
	logger.Info().Int("listings", len(leads)).Msg("page scraped")
}

// lastPage returns the highest page number to dispatch.
//
// Known gap: by default the range is 1..pages-1, so the directory's final
// page is never fetched and single-page queries dispatch nothing. This
// matches the behaviour existing lead files were produced with; set
// IncludeLastPage to fetch 1..pages.
func lastPage(pages int, includeLast bool) int {
	if includeLast {
		return pages
	}
	return pages - 1
}

func dispatchLimit(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}
