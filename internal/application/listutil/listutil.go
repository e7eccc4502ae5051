// Package listutil provides pagination helpers for list endpoints.
package listutil

import (
	"net/url"
	"strconv"
)

// PerPage is the fixed page size for history listings.
const PerPage = 10

// PageInfo describes one page of a paginated listing.
type PageInfo struct {
	Page       int `json:"currentPage"`
	PerPage    int `json:"perPage"`
	Total      int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// ParsePage extracts the page number from query values.
// PRE: values may be empty or carry a non-numeric page
// POST: Returns a page number >= 1
func ParsePage(values url.Values) int {
	page, err := strconv.Atoi(values.Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// NewPageInfo builds page metadata for a listing.
// PRE: page >= 1, perPage >= 1, total >= 0
// POST: TotalPages is the ceiling of total/perPage
func NewPageInfo(page, perPage, total int) PageInfo {
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}

// Offset returns the row offset for the page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}
