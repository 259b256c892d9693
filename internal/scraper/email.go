package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/leadcli/internal/network"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var (
	mailtoPattern = regexp.MustCompile(`mailto:([a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+)`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`)

	assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}
)

// EmailVerifier filters out addresses that are not deliverable.
type EmailVerifier interface {
	Valid(email string) bool
}

type EmailResolverOptions struct {
	// Concurrency caps website fetches across every caller; 0 means no cap.
	Concurrency int
	Verifier    EmailVerifier
	Logger      zerolog.Logger
}

// EmailResolver fetches a business home page and at most one contact page.
type EmailResolver struct {
	client   network.Doer
	sem      *semaphore.Weighted
	verifier EmailVerifier
	logger   zerolog.Logger
}

func NewEmailResolver(client network.Doer, opts EmailResolverOptions) *EmailResolver {
	resolver := &EmailResolver{
		client:   client,
		verifier: opts.Verifier,
		logger:   opts.Logger,
	}
	if opts.Concurrency > 0 {
		resolver.sem = semaphore.NewWeighted(int64(opts.Concurrency))
	}
	return resolver
}

// Resolve returns the comma-joined addresses found on website, or "" when the
// home page cannot be fetched. Contact page failures keep home page results.
func (r *EmailResolver) Resolve(ctx context.Context, website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	logger := r.logger.With().Str("website", website).Logger()

	body, doc, err := r.fetch(ctx, website)
	if err != nil {
		logger.Debug().Err(err).Msg("website unavailable")
		return ""
	}
	emails := matchEmails(body)

	if contact := findContactLink(doc, website); contact != "" {
		logger.Debug().Str("contact_url", contact).Msg("fetching contact page")
		contactBody, _, err := r.fetch(ctx, contact)
		if err != nil {
			logger.Debug().Err(err).Msg("contact page unavailable")
		} else {
			emails = append(emails, matchEmails(contactBody)...)
		}
	}

	return joinEmails(r.verified(emails))
}

func (r *EmailResolver) fetch(ctx context.Context, target string) (string, *goquery.Document, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return "", nil, &FetchError{URL: target, Err: err}
		}
		defer r.sem.Release(1)
	}
	return fetchPage(ctx, r.client, target, nil)
}

func (r *EmailResolver) verified(emails []string) []string {
	if r.verifier == nil {
		return emails
	}
	kept := emails[:0]
	for _, email := range emails {
		if r.verifier.Valid(email) {
			kept = append(kept, email)
			continue
		}
		r.logger.Debug().Str("email", email).Msg("address rejected by verifier")
	}
	return kept
}

// matchEmails prefers explicit mailto targets and only falls back to bare
// address-shaped tokens when a page has none.
func matchEmails(content string) []string {
	var emails []string
	for _, match := range mailtoPattern.FindAllStringSubmatch(content, -1) {
		if email := trimEmail(match[1]); email != "" {
			emails = append(emails, email)
		}
	}
	if len(emails) > 0 {
		return emails
	}
	for _, match := range emailPattern.FindAllString(content, -1) {
		if email := trimEmail(match); email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

func trimEmail(raw string) string {
	email := strings.TrimRight(raw, ".-")
	lower := strings.ToLower(email)
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return ""
		}
	}
	return email
}

// findContactLink returns the first anchor pointing at a contact page,
// resolved against website.
func findContactLink(doc *goquery.Document, website string) string {
	base, err := url.Parse(website)
	if err != nil {
		return ""
	}

	contact := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if !strings.Contains(lower, "contact") {
			return true
		}
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "javascript:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		resolved.Fragment = ""
		contact = resolved.String()
		return false
	})
	return contact
}

func joinEmails(emails []string) string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))
	for _, email := range emails {
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		unique = append(unique, email)
	}
	return strings.Join(unique, ", ")
}
