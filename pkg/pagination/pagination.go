package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultPerPage fills a four-column product grid six rows deep.
	DefaultPerPage = 24
	// MaxPerPage caps a single listing request.
	MaxPerPage = 96
)

// Params is the page window of a listing request. Pages are 1-based.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads page and per_page from the query string. Missing or
// malformed values fall back to the defaults; an oversized per_page is
// clamped to MaxPerPage.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		p.PerPage = min(v, MaxPerPage)
	}
	return p
}

// Offset is the zero-based index of the first item on the page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Encode writes the non-zero fields into q for an upstream request.
func (p Params) Encode(q url.Values) {
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
}
