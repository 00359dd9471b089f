package model

import "time"

// MangaStatus は連載状況を表す。
type MangaStatus string

const (
	MangaStatusOngoing   MangaStatus = "ongoing"
	MangaStatusCompleted MangaStatus = "completed"
	MangaStatusHiatus    MangaStatus = "hiatus"
	MangaStatusCancelled MangaStatus = "cancelled"
)

// Valid は連載状況が定義済みの値かを判定する。空文字は未設定として許可する。
func (s MangaStatus) Valid() bool {
	switch s {
	case "", MangaStatusOngoing, MangaStatusCompleted, MangaStatusHiatus, MangaStatusCancelled:
		return true
	}
	return false
}

const (
	// SourceInternal はこのサービス上で投稿者が直接登録したマンガ。
	SourceInternal = "internal"
	// SourceMangaDex は外部カタログ（MangaDex）を参照するプレースホルダーマンガ。
	SourceMangaDex = "mangadex"
)

// Manga はマンガ作品を表す。
type Manga struct {
	ID              string
	ExternalID      string // 外部カタログID。内部マンガでは空
	Title           string
	Description     string
	CoverFileName   string
	Author          string
	Artist          string
	Status          MangaStatus
	Type            string
	Source          string
	UserID          string // 登録したユーザー。プレースホルダーでは空
	Genres          []Genre
	CatalogSyncedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsInternal は内部マンガかどうかを返す。
func (m *Manga) IsInternal() bool {
	return m.Source == SourceInternal
}

// GenreNames はジャンル名の一覧を返す。
func (m *Manga) GenreNames() []string {
	names := make([]string, len(m.Genres))
	for i, g := range m.Genres {
		names[i] = g.Name
	}
	return names
}

// Genre はジャンルを表す。名前は一意。
type Genre struct {
	ID   string
	Name string
}

// MangaInput はマンガ作成・更新の入力。
// 更新時はnilのフィールドを変更しない。
type MangaInput struct {
	Title         *string
	Description   *string
	CoverFileName *string
	Author        *string
	Artist        *string
	Status        *MangaStatus
	Type          *string
	Genres        []string // nilの場合は更新しない
}

// Chapter はマンガのチャプターを表す。
// ChapterNumberは "1.5" のような番外編を表せるよう浮動小数点数で保持する。
type Chapter struct {
	ID            string
	MangaID       string
	ChapterNumber float64
	Title         string
	Volume        *string
	Pages         []string
	Source        string
	SourceID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChapterInput はチャプター作成・更新の入力。
// 更新時はnilのフィールドを変更しない。
type ChapterInput struct {
	ChapterNumber *float64
	Title         *string
	Volume        *string
	Pages         []string // nilの場合は更新しない
	Source        *string
	SourceID      *string
}

// MangaKey はマンガの内部IDと外部カタログIDの組。
type MangaKey struct {
	ID         string
	ExternalID string
}
