package models

// SearchQuery is one keyword/location pair submitted to a directory.
type SearchQuery struct {
	Keyword  string
	Location string
}

// PageRequest addresses a single result page of a query.
// Page 0 means the first page and sends no page parameter.
type PageRequest struct {
	Query SearchQuery
	Page  int
}
