// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/mangashelf/internal/model"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しない場合に返す。
	// 検索系メソッドは見つからない場合にnilを返し、このエラーは使わない。
	ErrNotFound = errors.New("対象のレコードが見つかりません")

	// ErrDuplicate は一意制約違反の場合に返す。
	ErrDuplicate = errors.New("一意制約に違反しました")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// ExistsByUsernameOrEmail はユーザー名またはメールアドレスが既に使われているかを返す。
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Create はユーザーを作成する。一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// List は作成日時の新しい順にユーザー一覧と総件数を返す。limitが0の場合は全件を返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, int, error)

	// Update はロールと有効状態を部分更新する。対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// ブックマーク・履歴・評価・コメントはCASCADE削除され、マンガの所有者はNULLになる。
	DeleteByID(ctx context.Context, id string) error
}

// MangaFilter はマンガ一覧の絞り込み条件。
// Limitが0の場合は全件を返す。
type MangaFilter struct {
	OwnerID string
	Source  string
	Limit   int
	Offset  int
}

// MangaRepository はマンガデータの永続化インターフェース。
// 取得したマンガにはジャンルが読み込まれている。
type MangaRepository interface {
	// FindByID は指定IDのマンガを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Manga, error)

	// FindByExternalID は外部カタログIDでマンガを取得する。見つからない場合はnilを返す。
	FindByExternalID(ctx context.Context, externalID string) (*model.Manga, error)

	// Create はマンガとジャンルの紐付けを同一トランザクションで作成する。
	// external_idの一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, manga *model.Manga) error

	// Update はマンガ情報を更新する。replaceGenresがtrueの場合はジャンルの紐付けも置き換える。
	Update(ctx context.Context, manga *model.Manga, replaceGenres bool) error

	// Delete は指定IDのマンガを削除する。チャプター・コメント等はCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// List は作成日時の新しい順にマンガ一覧と総件数を返す。
	List(ctx context.Context, filter MangaFilter) ([]*model.Manga, int, error)

	// Search はタイトルまたは作者の部分一致（大文字小文字を区別しない）でマンガを検索する。
	Search(ctx context.Context, query string, limit int) ([]*model.Manga, error)

	// ListNeedingCatalogSync はカタログ同期が必要なプレースホルダーマンガを取得する。
	// catalog_synced_at IS NULLを優先し、次にstaleBeforeより古い順に処理する。
	ListNeedingCatalogSync(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error)

	// UpdateCatalogMetadata はカタログから取得したメタデータと同期日時を更新する。
	UpdateCatalogMetadata(ctx context.Context, manga *model.Manga, syncedAt time.Time) error
}

// GenreRepository はジャンルデータの永続化インターフェース。
type GenreRepository interface {
	// List は名前順にジャンル一覧を返す。
	List(ctx context.Context) ([]model.Genre, error)

	// FindOrCreate は指定名のジャンルを取得し、存在しなければ作成する。
	FindOrCreate(ctx context.Context, name string) (*model.Genre, error)
}

// ChapterRepository はチャプターデータの永続化インターフェース。
type ChapterRepository interface {
	// FindByID は指定IDのチャプターを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Chapter, error)

	// FindByMangaAndNumber はマンガIDとチャプター番号でチャプターを取得する。見つからない場合はnilを返す。
	FindByMangaAndNumber(ctx context.Context, mangaID string, number float64) (*model.Chapter, error)

	// ListByManga はチャプター番号の昇順でマンガのチャプター一覧を返す。
	ListByManga(ctx context.Context, mangaID string) ([]*model.Chapter, error)

	// Create はチャプターを作成する。(manga_id, chapter_number) の重複時はErrDuplicateを返す。
	Create(ctx context.Context, chapter *model.Chapter) error

	// Update はチャプターを更新する。番号の重複時はErrDuplicateを返す。
	Update(ctx context.Context, chapter *model.Chapter) error

	// Delete は指定IDのチャプターを削除する。
	Delete(ctx context.Context, id string) error
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
type BookmarkRepository interface {
	// Create はブックマークを作成する。既に存在する場合は何もせずfalseを返す。
	Create(ctx context.Context, bookmark *model.Bookmark) (bool, error)

	// Delete はユーザーとマンガの組み合わせでブックマークを削除する。
	Delete(ctx context.Context, userID, mangaID string) error

	// ListByUser は作成日時の新しい順にブックマーク一覧をマンガ情報付きで返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Bookmark, error)

	// ListMangaKeys はブックマーク済みマンガの識別子一覧を返す。
	ListMangaKeys(ctx context.Context, userID string) ([]model.MangaKey, error)

	// Exists はブックマーク済みかを返す。
	Exists(ctx context.Context, userID, mangaID string) (bool, error)
}

// HistoryRepository は閲覧履歴データの永続化インターフェース。
type HistoryRepository interface {
	// Upsert は閲覧位置を単一のSQL文で作成または上書きする。
	Upsert(ctx context.Context, history *model.History) (*model.History, error)

	// FindByUserAndManga はユーザーとマンガの閲覧履歴を取得する。見つからない場合はnilを返す。
	FindByUserAndManga(ctx context.Context, userID, mangaID string) (*model.History, error)

	// ListByUser は更新日時の新しい順に閲覧履歴をマンガ情報付きで返す。
	ListByUser(ctx context.Context, userID string) ([]*model.History, error)

	// Delete はユーザーとマンガの閲覧履歴を削除する。
	Delete(ctx context.Context, userID, mangaID string) error
}

// RatingRepository は評価データの永続化インターフェース。
type RatingRepository interface {
	// Upsert は評価を単一のSQL文で作成または上書きする。
	// commentがnilの場合は既存のコメントを維持する。
	Upsert(ctx context.Context, rating *model.Rating) (*model.Rating, error)

	// ListByManga は作成日時の新しい順にマンガの評価一覧をユーザー名付きで返す。
	ListByManga(ctx context.Context, mangaID string) ([]*model.Rating, error)

	// Summary はマンガの平均スコアと件数を返す。評価がない場合は0を返す。
	Summary(ctx context.Context, mangaID string) (model.RatingSummary, error)

	// FindByUserAndManga はユーザーのマンガ評価を取得する。見つからない場合はnilを返す。
	FindByUserAndManga(ctx context.Context, userID, mangaID string) (*model.Rating, error)

	// Delete はユーザーのマンガ評価を削除する。
	Delete(ctx context.Context, userID, mangaID string) error
}

// CommentRepository はコメントデータの永続化インターフェース。
// 取得したコメントには投稿者のユーザー名が含まれる。
type CommentRepository interface {
	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// ListByManga は作成日時の新しい順にマンガのコメント一覧を返す。
	// includeHiddenがfalseの場合は非表示コメントを除外する。
	ListByManga(ctx context.Context, mangaID string, includeHidden bool) ([]*model.Comment, error)

	// ListByMangaOwner は指定ユーザーが登録したマンガに付いたコメント一覧を返す。
	ListByMangaOwner(ctx context.Context, ownerID string) ([]*model.Comment, error)

	// List は非表示を含む全コメントを新しい順に返す。
	List(ctx context.Context, limit, offset int) ([]*model.Comment, int, error)

	// SetHidden はコメントの非表示フラグを更新する。
	SetHidden(ctx context.Context, id string, hidden bool) error

	// Delete は指定IDのコメントを削除する。返信はCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// ViewRepository は閲覧数データの永続化インターフェース。
type ViewRepository interface {
	// Create は閲覧記録を1件追加する。
	Create(ctx context.Context, view *model.View) error

	// CountByChapter はチャプターの閲覧数を返す。
	CountByChapter(ctx context.Context, chapterID string) (int, error)

	// CountByManga はマンガ配下の全チャプターの閲覧数合計を返す。
	CountByManga(ctx context.Context, mangaID string) (int, error)

	// TopChapters はマンガ内で閲覧数の多いチャプターを返す。
	TopChapters(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error)

	// TopManga は内部マンガのうち閲覧数の多いものを返す。
	TopManga(ctx context.Context, limit int) ([]model.MangaViewCount, error)
}
