package model

import "time"

// Bookmark はユーザーのライブラリ登録を表す。(UserID, MangaID) で一意。
type Bookmark struct {
	ID        string
	UserID    string
	MangaID   string
	Manga     *Manga
	CreatedAt time.Time
}

// History はユーザーの最終閲覧位置を表す。(UserID, MangaID) で一意。
// 閲覧のたびに追記ではなく上書きされる。
type History struct {
	ID            string
	UserID        string
	MangaID       string
	ChapterNumber float64
	PageNumber    int
	Manga         *Manga
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Rating はユーザーによるマンガの評価を表す。(UserID, MangaID) で一意。
type Rating struct {
	ID        string
	UserID    string
	Username  string
	MangaID   string
	Score     int
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 評価スコアの範囲
const (
	MinRatingScore = 1
	MaxRatingScore = 10
)

// RatingSummary はマンガの平均評価と件数。
type RatingSummary struct {
	Average float64
	Count   int
}
