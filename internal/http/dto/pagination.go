package dto

import (
	"math"
	"net/http"
	"strconv"

	"radiocat/internal/constants"
)

// Pagination describes one page of a larger result set. Next and Prev
// are page numbers, null when out of range.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	Prev       *int `json:"prev"`
	Next       *int `json:"next"`
}

// PageResponse is the envelope for paginated list endpoints.
type PageResponse[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination clamps page into range and derives the page metadata.
func NewPagination(page, pageSize, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
	if page > 1 {
		prev := page - 1
		p.Prev = &prev
	}
	if page < totalPages {
		next := page + 1
		p.Next = &next
	}
	return p
}

// ListParams carries parsed paging query parameters.
type ListParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParseListParams reads page and page_size from the query string. Values
// out of range are clamped rather than rejected.
func ParseListParams(r *http.Request) ListParams {
	p := ListParams{Page: 1, PageSize: constants.DefaultPageSize}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PageSize = n
		}
	}
	if p.PageSize > constants.MaxPageSize {
		p.PageSize = constants.MaxPageSize
	}
	return p
}
