package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// Create はブックマークを作成する。既に存在する場合は何もせずfalseを返す。
// 存在確認と挿入を1文で行い、同時リクエストでも重複行を作らない。
func (r *PostgresBookmarkRepo) Create(ctx context.Context, b *model.Bookmark) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, user_id, manga_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, manga_id) DO NOTHING`,
		b.ID, b.UserID, b.MangaID, b.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("ブックマークの作成に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("作成結果の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// Delete はユーザーとマンガの組み合わせでブックマークを削除する。
func (r *PostgresBookmarkRepo) Delete(ctx context.Context, userID, mangaID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND manga_id = $2`,
		userID, mangaID,
	)
	if err != nil {
		return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByUser は作成日時の新しい順にブックマーク一覧をマンガ情報付きで返す。
func (r *PostgresBookmarkRepo) ListByUser(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.manga_id, b.created_at, `+mangaColumns+`
		 FROM bookmarks b JOIN manga m ON m.id = b.manga_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	bookmarks := []*model.Bookmark{}
	var mangas []*model.Manga
	for rows.Next() {
		b := &model.Bookmark{}
		m, err := scanManga(prefixScanner{row: rows, prefix: []any{&b.ID, &b.UserID, &b.MangaID, &b.CreatedAt}})
		if err != nil {
			return nil, fmt.Errorf("ブックマーク行の読み取りに失敗しました: %w", err)
		}
		b.Manga = m
		bookmarks = append(bookmarks, b)
		mangas = append(mangas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の走査に失敗しました: %w", err)
	}
	if err := loadGenres(ctx, r.db, mangas); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// ListMangaKeys はブックマーク済みマンガの識別子一覧を返す。
func (r *PostgresBookmarkRepo) ListMangaKeys(ctx context.Context, userID string) ([]model.MangaKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, COALESCE(m.external_id, '')
		 FROM bookmarks b JOIN manga m ON m.id = b.manga_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク済みマンガIDの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	keys := []model.MangaKey{}
	for rows.Next() {
		var k model.MangaKey
		if err := rows.Scan(&k.ID, &k.ExternalID); err != nil {
			return nil, fmt.Errorf("マンガID行の読み取りに失敗しました: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マンガID一覧の走査に失敗しました: %w", err)
	}
	return keys, nil
}

// Exists はブックマーク済みかを返す。
func (r *PostgresBookmarkRepo) Exists(ctx context.Context, userID, mangaID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = $1 AND manga_id = $2)`,
		userID, mangaID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ブックマークの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
