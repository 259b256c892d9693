package scraper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jimezsa/leadcli/internal/network"
)

const SiteYellowPages = "yellowpages"

func Registry(client network.Doer, baseURL string) map[string]Directory {
	return map[string]Directory{
		SiteYellowPages: NewYellowPages(client, baseURL),
	}
}

// Sites lists the registered directory names in sorted order.
func Sites() []string {
	registry := Registry(nil, "")
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered directory for site, defaulting to Yellow Pages.
func Lookup(registry map[string]Directory, site string) (Directory, error) {
	name := SiteYellowPages
	if normalized := NormalizeSites([]string{site}); len(normalized) > 0 {
		name = expandAlias(normalized[0])
	}
	directory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, site)
	}
	return directory, nil
}

func NormalizeSites(sites []string) []string {
	out := make([]string, 0, len(sites))
	for _, site := range sites {
		site = strings.ToLower(strings.TrimSpace(site))
		if site == "" {
			continue
		}
		site = strings.TrimPrefix(site, "https://")
		site = strings.TrimPrefix(site, "http://")
		site = strings.TrimPrefix(site, "www.")
		site = strings.TrimSuffix(site, "/")
		out = append(out, site)
	}
	return out
}

func expandAlias(site string) string {
	switch site {
	case "yp", "yellowpages.com", "yellow-pages":
		return SiteYellowPages
	default:
		return site
	}
}
