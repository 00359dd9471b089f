package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresViewRepo はPostgreSQLを使用した閲覧数リポジトリ。
// viewsテーブルは追記専用で、更新・削除は行わない。
type PostgresViewRepo struct {
	db *sql.DB
}

// NewPostgresViewRepo はPostgresViewRepoを生成する。
func NewPostgresViewRepo(db *sql.DB) *PostgresViewRepo {
	return &PostgresViewRepo{db: db}
}

// Create は閲覧記録を1件追加する。
func (r *PostgresViewRepo) Create(ctx context.Context, v *model.View) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO views (id, chapter_id, user_id, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.ChapterID, nullString(v.UserID), v.IPAddress, v.UserAgent, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("閲覧記録の作成に失敗しました: %w", err)
	}
	return nil
}

// CountByChapter はチャプターの閲覧数を返す。
func (r *PostgresViewRepo) CountByChapter(ctx context.Context, chapterID string) (int, error) {
	if !validUUID(chapterID) {
		return 0, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM views WHERE chapter_id = $1`,
		chapterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("チャプター閲覧数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountByManga はマンガ配下の全チャプターの閲覧数合計を返す。
func (r *PostgresViewRepo) CountByManga(ctx context.Context, mangaID string) (int, error) {
	if !validUUID(mangaID) {
		return 0, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM views v JOIN chapters ch ON ch.id = v.chapter_id WHERE ch.manga_id = $1`,
		mangaID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("マンガ閲覧数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// TopChapters はマンガ内で閲覧数の多いチャプターを返す。閲覧数が同じ場合はチャプター番号順。
func (r *PostgresViewRepo) TopChapters(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error) {
	if !validUUID(mangaID) {
		return []model.ChapterViewCount{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT ch.id, ch.title, ch.chapter_number, COUNT(v.id) AS view_count
		 FROM chapters ch JOIN views v ON v.chapter_id = ch.id
		 WHERE ch.manga_id = $1
		 GROUP BY ch.id, ch.title, ch.chapter_number
		 ORDER BY view_count DESC, ch.chapter_number ASC
		 LIMIT $2`,
		mangaID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("人気チャプターの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := []model.ChapterViewCount{}
	for rows.Next() {
		var c model.ChapterViewCount
		if err := rows.Scan(&c.ChapterID, &c.Title, &c.ChapterNumber, &c.ViewCount); err != nil {
			return nil, fmt.Errorf("人気チャプター行の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("人気チャプターの走査に失敗しました: %w", err)
	}
	return counts, nil
}

// TopManga は内部マンガのうち閲覧数の多いものを返す。
func (r *PostgresViewRepo) TopManga(ctx context.Context, limit int) ([]model.MangaViewCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.title, COUNT(v.id) AS view_count
		 FROM manga m
		 JOIN chapters ch ON ch.manga_id = m.id
		 JOIN views v ON v.chapter_id = ch.id
		 WHERE m.source = 'internal'
		 GROUP BY m.id, m.title
		 ORDER BY view_count DESC, m.title ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("人気マンガの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := []model.MangaViewCount{}
	for rows.Next() {
		var c model.MangaViewCount
		if err := rows.Scan(&c.MangaID, &c.Title, &c.ViewCount); err != nil {
			return nil, fmt.Errorf("人気マンガ行の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("人気マンガの走査に失敗しました: %w", err)
	}
	return counts, nil
}

var _ ViewRepository = (*PostgresViewRepo)(nil)
