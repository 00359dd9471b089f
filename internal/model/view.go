package model

import "time"

// View はチャプターの閲覧1回分の記録。追記専用で更新・重複排除はしない。
type View struct {
	ID        string
	ChapterID string
	UserID    string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// ChapterViewCount はチャプター別の閲覧数集計。
type ChapterViewCount struct {
	ChapterID     string
	Title         string
	ChapterNumber float64
	ViewCount     int
}

// MangaViewCount はマンガ別の閲覧数集計。
type MangaViewCount struct {
	MangaID   string
	Title     string
	ViewCount int
}
