package database

import "testing"

func TestParsePage(t *testing.T) {
	tests := []struct {
		page, limit string
		want        Page
	}{
		{"", "", Page{1, DefaultPageSize}},
		{"3", "50", Page{3, 50}},
		{"0", "-1", Page{1, DefaultPageSize}},
		{"x", "5000", Page{1, MaxPageSize}},
	}
	for _, tt := range tests {
		if got := ParsePage(tt.page, tt.limit); got != tt.want {
			t.Errorf("ParsePage(%q, %q) = %+v, want %+v", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestPages(t *testing.T) {
	p := Page{Page: 2, Limit: 20}
	if p.Offset() != 20 {
		t.Errorf("offset = %d", p.Offset())
	}
	for total, want := range map[int64]int{0: 1, 1: 1, 20: 1, 21: 2, 100: 5} {
		if got := p.Pages(total); got != want {
			t.Errorf("Pages(%d) = %d, want %d", total, got, want)
		}
	}
}
