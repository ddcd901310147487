package models

import (
	"net/http"
	"strconv"
)

// ListParams are the common pagination controls for list endpoints.
type ListParams struct {
	Page  int
	Limit int
}

// ParseListParams reads page/limit query parameters, clamping limit to
// maxLimit. Invalid values fall back to defaults rather than erroring.
func ParseListParams(r *http.Request, defaultLimit, maxLimit int) ListParams {
	p := ListParams{Page: 1, Limit: defaultLimit}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v >= 1 {
		p.Limit = v
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the envelope describing a page of results.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// NewPagination derives the page summary from a total row count.
func NewPagination(p ListParams, total int64) Pagination {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: p.Page < pages,
		HasPrev: p.Page > 1,
	}
}
