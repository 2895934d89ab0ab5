package listings

import (
	"strings"
)

const (
	defaultSearchLimit = 24
	maxSearchLimit     = 100
)

// SearchParams describe catalog filters and paging options.
// Location only applies when Query is empty.
type SearchParams struct {
	Query    string
	Category Category
	MinPrice *int64
	MaxPrice *int64
	Location string
	Owner    HostID
	Limit    int
	Offset   int

	// Unbounded disables paging, used by the map feed.
	Unbounded bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Query = strings.TrimSpace(strings.ToLower(normalized.Query))
	normalized.Location = strings.TrimSpace(strings.ToLower(normalized.Location))
	if normalized.Query != "" {
		normalized.Location = ""
	}
	if normalized.MinPrice != nil && *normalized.MinPrice < 0 {
		zero := int64(0)
		normalized.MinPrice = &zero
	}
	if normalized.Unbounded {
		normalized.Limit = 0
		normalized.Offset = 0
		return normalized
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	return normalized
}

// Matches applies the filter to a single listing. Params must be normalized.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.Owner != "" && l.Owner != p.Owner {
		return false
	}
	if p.Query != "" && !containsFold(p.Query, l.Title, l.Location, l.Country) {
		return false
	}
	if p.Location != "" && !containsFold(p.Location, l.Location, l.Country) {
		return false
	}
	if p.Category != "" && l.Category != p.Category {
		return false
	}
	if p.MinPrice != nil && l.Price < *p.MinPrice {
		return false
	}
	if p.MaxPrice != nil && l.Price > *p.MaxPrice {
		return false
	}
	return true
}

func containsFold(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Page slices ordered matches according to Limit and Offset.
func (p SearchParams) Page(items []*Listing) []*Listing {
	if p.Unbounded || p.Limit <= 0 {
		return items
	}
	if p.Offset >= len(items) {
		return nil
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}
