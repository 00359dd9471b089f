package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresHistoryRepo はPostgreSQLを使用した閲覧履歴リポジトリ。
type PostgresHistoryRepo struct {
	db *sql.DB
}

// NewPostgresHistoryRepo はPostgresHistoryRepoを生成する。
func NewPostgresHistoryRepo(db *sql.DB) *PostgresHistoryRepo {
	return &PostgresHistoryRepo{db: db}
}

const historyColumns = `h.id, h.user_id, h.manga_id, h.chapter_number, h.page_number, h.created_at, h.updated_at`

func historyDest(h *model.History) []any {
	return []any{&h.ID, &h.UserID, &h.MangaID, &h.ChapterNumber, &h.PageNumber, &h.CreatedAt, &h.UpdatedAt}
}

// Upsert は閲覧位置を単一のSQL文で作成または上書きする。
// 既存行がある場合はIDと作成日時を維持し、チャプター番号・ページ番号・更新日時のみ上書きする。
func (r *PostgresHistoryRepo) Upsert(ctx context.Context, history *model.History) (*model.History, error) {
	h := &model.History{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO histories AS h (id, user_id, manga_id, chapter_number, page_number, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (user_id, manga_id) DO UPDATE
		 SET chapter_number = EXCLUDED.chapter_number,
		     page_number = EXCLUDED.page_number,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+historyColumns,
		history.ID, history.UserID, history.MangaID, history.ChapterNumber, history.PageNumber, history.UpdatedAt,
	).Scan(historyDest(h)...)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴のUPSERTに失敗しました: %w", err)
	}
	return h, nil
}

// FindByUserAndManga はユーザーとマンガの閲覧履歴を取得する。見つからない場合はnilを返す。
func (r *PostgresHistoryRepo) FindByUserAndManga(ctx context.Context, userID, mangaID string) (*model.History, error) {
	h := &model.History{}
	m, err := scanManga(prefixScanner{
		row: r.db.QueryRowContext(ctx,
			`SELECT `+historyColumns+`, `+mangaColumns+`
			 FROM histories h JOIN manga m ON m.id = h.manga_id
			 WHERE h.user_id = $1 AND h.manga_id = $2`,
			userID, mangaID),
		prefix: historyDest(h),
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴の取得に失敗しました: %w", err)
	}
	if err := loadGenres(ctx, r.db, []*model.Manga{m}); err != nil {
		return nil, err
	}
	h.Manga = m
	return h, nil
}

// ListByUser は更新日時の新しい順に閲覧履歴をマンガ情報付きで返す。
func (r *PostgresHistoryRepo) ListByUser(ctx context.Context, userID string) ([]*model.History, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+historyColumns+`, `+mangaColumns+`
		 FROM histories h JOIN manga m ON m.id = h.manga_id
		 WHERE h.user_id = $1
		 ORDER BY h.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	histories := []*model.History{}
	var mangas []*model.Manga
	for rows.Next() {
		h := &model.History{}
		m, err := scanManga(prefixScanner{row: rows, prefix: historyDest(h)})
		if err != nil {
			return nil, fmt.Errorf("閲覧履歴行の読み取りに失敗しました: %w", err)
		}
		h.Manga = m
		histories = append(histories, h)
		mangas = append(mangas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("閲覧履歴一覧の走査に失敗しました: %w", err)
	}
	if err := loadGenres(ctx, r.db, mangas); err != nil {
		return nil, err
	}
	return histories, nil
}

// Delete はユーザーとマンガの閲覧履歴を削除する。
func (r *PostgresHistoryRepo) Delete(ctx context.Context, userID, mangaID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM histories WHERE user_id = $1 AND manga_id = $2`,
		userID, mangaID,
	)
	if err != nil {
		return fmt.Errorf("閲覧履歴の削除に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("閲覧履歴の削除に失敗しました: %w", err)
	}
	return nil
}

var _ HistoryRepository = (*PostgresHistoryRepo)(nil)
