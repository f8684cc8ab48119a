package dto

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/hugh/rateboard/internal/api/validation"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Token      string      `json:"token,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Pagination struct {
	Page        int   `json:"page"`
	Size        int   `json:"size"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(page, size int, total int64) *Pagination {
	pages := 0
	if size > 0 {
		pages = int(math.Ceil(float64(total) / float64(size)))
	}
	return &Pagination{
		Page:        page,
		Size:        size,
		TotalCount:  total,
		TotalPages:  pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

type PaginationParams struct {
	Page int
	Size int
}

func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
}

func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.Size
}

// ParsePagination reads page and size (or per_page) from the query string.
// Unparseable values fall back to the defaults.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	p := PaginationParams{}
	p.Page, _ = strconv.Atoi(q.Get("page"))

	size := q.Get("size")
	if size == "" {
		size = q.Get("per_page")
	}
	p.Size, _ = strconv.Atoi(size)

	p.Normalize()
	return p
}

// SearchTerm returns the cleaned search query parameter, or "".
func SearchTerm(r *http.Request) string {
	s := strings.TrimSpace(validation.SanitizeString(r.URL.Query().Get("search")))
	return validation.TruncateString(s, validation.MaxSearchLength)
}
