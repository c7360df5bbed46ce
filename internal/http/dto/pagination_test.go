package dto

import (
	"net/http/httptest"
	"testing"
)

func TestNewPagination(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name      string
		page      int
		pageSize  int
		total     int
		wantPage  int
		wantPages int
		wantPrev  *int
		wantNext  *int
	}{
		{"first of three", 1, 20, 45, 1, 3, nil, intPtr(2)},
		{"middle", 2, 20, 45, 2, 3, intPtr(1), intPtr(3)},
		{"last", 3, 20, 45, 3, 3, intPtr(2), nil},
		{"page past end clamps", 9, 20, 45, 3, 3, intPtr(2), nil},
		{"zero page clamps to one", 0, 20, 45, 1, 3, nil, intPtr(2)},
		{"empty result", 1, 20, 0, 1, 1, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.pageSize, tt.total)
			if p.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", p.Page, tt.wantPage)
			}
			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if !eqIntPtr(p.Prev, tt.wantPrev) || !eqIntPtr(p.Next, tt.wantNext) {
				t.Errorf("Prev/Next = %v/%v, want %v/%v", fmtPtr(p.Prev), fmtPtr(p.Next), fmtPtr(tt.wantPrev), fmtPtr(tt.wantNext))
			}
			if p.TotalItems != tt.total {
				t.Errorf("TotalItems = %d, want %d", p.TotalItems, tt.total)
			}
		})
	}
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		url          string
		wantPage     int
		wantPageSize int
	}{
		{"/api/shows", 1, 20},
		{"/api/shows?page=3&page_size=50", 3, 50},
		{"/api/shows?page=0&page_size=-5", 1, 20},
		{"/api/shows?page=abc", 1, 20},
		{"/api/shows?page_size=9999", 1, 100},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		p := ParseListParams(r)
		if p.Page != tt.wantPage || p.PageSize != tt.wantPageSize {
			t.Errorf("ParseListParams(%s) = %d/%d, want %d/%d",
				tt.url, p.Page, p.PageSize, tt.wantPage, tt.wantPageSize)
		}
	}
}

func TestListParamsOffset(t *testing.T) {
	p := ListParams{Page: 3, PageSize: 20}
	if p.Offset() != 40 {
		t.Errorf("Offset = %d, want 40", p.Offset())
	}
}
