package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresChapterRepo はPostgreSQLを使用したチャプターリポジトリ。
type PostgresChapterRepo struct {
	db *sql.DB
}

// NewPostgresChapterRepo はPostgresChapterRepoを生成する。
func NewPostgresChapterRepo(db *sql.DB) *PostgresChapterRepo {
	return &PostgresChapterRepo{db: db}
}

const chapterColumns = `id, manga_id, chapter_number, title, volume, pages, source, source_id, created_at, updated_at`

func scanChapter(row rowScanner) (*model.Chapter, error) {
	c := &model.Chapter{}
	var volume sql.NullString
	var pages []string
	err := row.Scan(&c.ID, &c.MangaID, &c.ChapterNumber, &c.Title, &volume, pq.Array(&pages),
		&c.Source, &c.SourceID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if volume.Valid {
		v := volume.String
		c.Volume = &v
	}
	if pages == nil {
		pages = []string{}
	}
	c.Pages = pages
	return c, nil
}

func volumeParam(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func pagesParam(pages []string) any {
	if pages == nil {
		pages = []string{}
	}
	return pq.Array(pages)
}

// FindByID は指定IDのチャプターを取得する。見つからない場合はnilを返す。
func (r *PostgresChapterRepo) FindByID(ctx context.Context, id string) (*model.Chapter, error) {
	if !validUUID(id) {
		return nil, nil
	}
	c, err := scanChapter(r.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チャプターの取得に失敗しました: %w", err)
	}
	return c, nil
}

// FindByMangaAndNumber はマンガIDとチャプター番号でチャプターを取得する。見つからない場合はnilを返す。
func (r *PostgresChapterRepo) FindByMangaAndNumber(ctx context.Context, mangaID string, number float64) (*model.Chapter, error) {
	if !validUUID(mangaID) {
		return nil, nil
	}
	c, err := scanChapter(r.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE manga_id = $1 AND chapter_number = $2`,
		mangaID, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チャプター番号による検索に失敗しました: %w", err)
	}
	return c, nil
}

// ListByManga はチャプター番号の昇順でマンガのチャプター一覧を返す。
func (r *PostgresChapterRepo) ListByManga(ctx context.Context, mangaID string) ([]*model.Chapter, error) {
	chapters := []*model.Chapter{}
	if !validUUID(mangaID) {
		return chapters, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE manga_id = $1 ORDER BY chapter_number ASC`,
		mangaID,
	)
	if err != nil {
		return nil, fmt.Errorf("チャプター一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("チャプター行の読み取りに失敗しました: %w", err)
		}
		chapters = append(chapters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チャプター一覧の走査に失敗しました: %w", err)
	}
	return chapters, nil
}

// Create はチャプターを作成する。(manga_id, chapter_number) の重複時はErrDuplicateを返す。
func (r *PostgresChapterRepo) Create(ctx context.Context, c *model.Chapter) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chapters (id, manga_id, chapter_number, title, volume, pages, source, source_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.MangaID, c.ChapterNumber, c.Title, volumeParam(c.Volume), pagesParam(c.Pages),
		c.Source, c.SourceID, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("チャプターの作成に失敗しました: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("チャプターの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はチャプターを更新する。番号の重複時はErrDuplicateを返す。
func (r *PostgresChapterRepo) Update(ctx context.Context, c *model.Chapter) error {
	if !validUUID(c.ID) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE chapters
		 SET chapter_number = $2, title = $3, volume = $4, pages = $5, source = $6, source_id = $7, updated_at = $8
		 WHERE id = $1`,
		c.ID, c.ChapterNumber, c.Title, volumeParam(c.Volume), pagesParam(c.Pages), c.Source, c.SourceID, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("チャプターの更新に失敗しました: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("チャプターの更新に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("チャプターの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのチャプターを削除する。
func (r *PostgresChapterRepo) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM chapters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("チャプターの削除に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("チャプターの削除に失敗しました: %w", err)
	}
	return nil
}

var _ ChapterRepository = (*PostgresChapterRepo)(nil)
