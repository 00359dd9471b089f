package model

import "math"

// ページネーションの上限値
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage はOFFSETがint32に収まるページ番号の上限。
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// PageRequest はページ番号（1始まり）と1ページあたりの件数。
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize は範囲外の値を補正したPageRequestを返す。
// pageは1からMaxPage、limitは1からMaxPageLimitの範囲に収める。
func (p PageRequest) Normalize(defaultLimit int) PageRequest {
	if defaultLimit <= 0 || defaultLimit > MaxPageLimit {
		defaultLimit = DefaultPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset はSQLのOFFSETに渡す値を返す。
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page はページネーションされた一覧結果。
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	TotalPages int
}

// NewPage はtotalからTotalPagesを切り上げで算出したPageを生成する。
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	totalPages := 0
	if req.Limit > 0 {
		totalPages = (total + req.Limit - 1) / req.Limit
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		TotalPages: totalPages,
	}
}
