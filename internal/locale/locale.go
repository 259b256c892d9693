// Package locale splits the "City, ST ZIP" text rendered by directory listings.
package locale

import (
	"regexp"

	"github.com/jimezsa/leadcli/internal/models"
)

var localePattern = regexp.MustCompile(`^(.*),\s([A-Z]{2})\s(\d{5})`)

// Parts holds the structured pieces of a locale string.
type Parts struct {
	City  string
	State string
	Zip   string
}

// Parse returns the captured city, state and zip, or empty parts when the
// text does not look like "City, ST 12345".
func Parse(value string) Parts {
	match := localePattern.FindStringSubmatch(value)
	if match == nil {
		return Parts{}
	}
	return Parts{City: match[1], State: match[2], Zip: match[3]}
}

// Apply fills City, State and Zip from each lead's raw locale.
func Apply(leads []models.Lead) {
	for i := range leads {
		parts := Parse(leads[i].Locale)
		leads[i].City = parts.City
		leads[i].State = parts.State
		leads[i].Zip = parts.Zip
	}
}
