package scraper

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/leadcli/internal/models"
	"github.com/jimezsa/leadcli/internal/network"
)

const (
	DefaultYellowPagesURL = "https://www.yellowpages.com"

	// yellowPagesPageSize is fixed by the site.
	yellowPagesPageSize = 30
)

var (
	resultTotalPattern  = regexp.MustCompile(`(?i)\bof\s+(\d[\d,]*)`)
	firstIntegerPattern = regexp.MustCompile(`\d[\d,]*`)
)

type YellowPages struct {
	client  network.Doer
	baseURL string
}

func NewYellowPages(client network.Doer, baseURL string) *YellowPages {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultYellowPagesURL
	}
	return &YellowPages{client: client, baseURL: baseURL}
}

func (y *YellowPages) Name() string {
	return SiteYellowPages
}

// FetchPage issues one search request. Failures come back as *FetchError.
func (y *YellowPages) FetchPage(ctx context.Context, req models.PageRequest) (*goquery.Document, error) {
	return fetchDocument(ctx, y.client, buildYellowPagesURL(y.baseURL, req), nil)
}

func (y *YellowPages) ParseListings(doc *goquery.Document) []models.Lead {
	return parseYellowPagesListings(doc, y.baseURL)
}

func (y *YellowPages) PageCount(doc *goquery.Document) int {
	return yellowPagesPageCount(doc)
}

func buildYellowPagesURL(base string, req models.PageRequest) string {
	values := url.Values{}
	values.Set("search_terms", req.Query.Keyword)
	values.Set("geo_location_terms", req.Query.Location)
	if req.Page > 0 {
		values.Set("page", strconv.Itoa(req.Page))
	}
	return fmt.Sprintf("%s/search?%s", base, values.Encode())
}

func parseYellowPagesListings(doc *goquery.Document, base string) []models.Lead {
	var leads []models.Lead
	doc.Find(".search-results .result").Each(func(_ int, s *goquery.Selection) {
		leads = append(leads, parseYellowPagesListing(s, base))
	})
	return leads
}

func parseYellowPagesListing(s *goquery.Selection, base string) models.Lead {
	name := s.Find(".business-name").First()
	href, _ := name.Attr("href")
	website, _ := s.Find(".track-visit-website").First().Attr("href")

	return models.Lead{
		BusinessName: joinedText(name, " "),
		Categories:   textParts(s.Find(".categories").First()),
		Phone:        joinedText(s.Find(".phones").First(), " "),
		Street:       joinedText(s.Find(".street-address").First(), " "),
		Locale:       joinedText(s.Find(".locality").First(), " "),
		Website:      strings.TrimSpace(website),
		Link:         absoluteURL(base, strings.TrimSpace(href)),
	}
}

// yellowPagesPageCount falls back to a single page whenever the summary is
// missing or carries no usable total.
func yellowPagesPageCount(doc *goquery.Document) int {
	summary := doc.Find(".pagination").First().Find("p").First()
	if summary.Length() == 0 {
		return 1
	}
	total, ok := parseResultTotal(joinedText(summary, " "))
	if !ok || total <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / yellowPagesPageSize))
}

func parseResultTotal(text string) (int, bool) {
	raw := ""
	if match := resultTotalPattern.FindStringSubmatch(text); match != nil {
		raw = match[1]
	} else {
		raw = firstIntegerPattern.FindString(text)
	}
	if raw == "" {
		return 0, false
	}
	total, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, false
	}
	return total, true
}
