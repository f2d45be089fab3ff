package database

import (
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page is a parsed page/limit pair. Page starts at 1.
type Page struct {
	Page  int
	Limit int
}

// ParsePage reads raw query values, falling back to page 1 and the default
// size. Limit is capped at MaxPageSize.
func ParsePage(page, limit string) Page {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = 1
	}
	l, err := strconv.Atoi(limit)
	if err != nil || l < 1 {
		l = DefaultPageSize
	}
	if l > MaxPageSize {
		l = MaxPageSize
	}
	return Page{Page: p, Limit: l}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Page) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// Pages is the number of pages needed for total rows, at least 1.
func (p Page) Pages(total int64) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
