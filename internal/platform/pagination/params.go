package pagination

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit defines the fallback number of items returned when the client omits limit.
	DefaultLimit = 20
	// DefaultMaxLimit caps the supported limit to prevent unbounded queries.
	DefaultMaxLimit = 100
)

// Params bundles the page-based pagination values extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

var (
	ErrInvalidPage  = errors.New("pagination: invalid page")
	ErrInvalidLimit = errors.New("pagination: invalid limit")
)

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params representation.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	page, err := parsePositiveInt(values.Get("page"), 1, ErrInvalidPage)
	if err != nil {
		return Params{}, err
	}

	fallback := opts.DefaultLimit
	if fallback <= 0 {
		fallback = DefaultLimit
	}
	limit, err := parsePositiveInt(values.Get("limit"), fallback, ErrInvalidLimit)
	if err != nil {
		return Params{}, err
	}

	max := opts.MaxLimit
	if max <= 0 {
		max = DefaultMaxLimit
	}
	if limit > max {
		limit = max
	}

	return Params{Page: page, Limit: limit}, nil
}

// Offset converts the page/limit pair into the number of documents to skip.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages computes the page count for the given total, never below one.
func (p Params) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 1
	}
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if pages < 1 {
		return 1
	}
	return pages
}

func parsePositiveInt(raw string, fallback int, invalid error) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, invalid
	}
	return value, nil
}
