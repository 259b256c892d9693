package scraper

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/leadcli/internal/models"
)

var ErrUnknownSite = errors.New("unknown directory site")

// Directory is a paginated business directory that can be searched by
// keyword and location.
type Directory interface {
	Name() string
	FetchPage(ctx context.Context, req models.PageRequest) (*goquery.Document, error)
	ParseListings(doc *goquery.Document) []models.Lead
	PageCount(doc *goquery.Document) int
}

// EmailFinder mines contact addresses from a business website.
type EmailFinder interface {
	Resolve(ctx context.Context, website string) string
}
