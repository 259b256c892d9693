package models

import "strings"

// Lead is one enriched business record emitted by a crawl.
type Lead struct {
	BusinessName string   `json:"business_name"`
	Categories   []string `json:"categories,omitempty"`
	Phone        string   `json:"phone"`
	Street       string   `json:"street"`
	Locale       string   `json:"-"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Zip          string   `json:"zip"`
	Website      string   `json:"website"`
	Link         string   `json:"link"`
	Email        string   `json:"email"`
}

// Category renders the category list the way the directory shows it.
func (l Lead) Category() string {
	return strings.Join(l.Categories, ", ")
}

// HasEmail reports whether at least one address was resolved.
func (l Lead) HasEmail() bool {
	return strings.TrimSpace(l.Email) != ""
}
