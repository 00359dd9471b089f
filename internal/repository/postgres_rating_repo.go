package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresRatingRepo はPostgreSQLを使用した評価リポジトリ。
type PostgresRatingRepo struct {
	db *sql.DB
}

// NewPostgresRatingRepo はPostgresRatingRepoを生成する。
func NewPostgresRatingRepo(db *sql.DB) *PostgresRatingRepo {
	return &PostgresRatingRepo{db: db}
}

const ratingColumns = `r.id, r.user_id, u.username, r.manga_id, r.score, r.comment, r.created_at, r.updated_at`

func scanRating(row rowScanner) (*model.Rating, error) {
	rt := &model.Rating{}
	var comment sql.NullString
	if err := row.Scan(&rt.ID, &rt.UserID, &rt.Username, &rt.MangaID, &rt.Score, &comment, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return nil, err
	}
	if comment.Valid {
		c := comment.String
		rt.Comment = &c
	}
	return rt, nil
}

// Upsert は評価を単一のSQL文で作成または上書きする。
// commentがnilの場合は既存のコメントを維持する。
func (r *PostgresRatingRepo) Upsert(ctx context.Context, rating *model.Rating) (*model.Rating, error) {
	var comment sql.NullString
	if rating.Comment != nil {
		comment = sql.NullString{String: *rating.Comment, Valid: true}
	}

	rt, err := scanRating(r.db.QueryRowContext(ctx,
		`WITH r AS (
		     INSERT INTO ratings AS x (id, user_id, manga_id, score, comment, created_at, updated_at)
		     VALUES ($1, $2, $3, $4, $5, $6, $6)
		     ON CONFLICT (user_id, manga_id) DO UPDATE
		     SET score = EXCLUDED.score,
		         comment = COALESCE(EXCLUDED.comment, x.comment),
		         updated_at = EXCLUDED.updated_at
		     RETURNING x.*
		 )
		 SELECT `+ratingColumns+` FROM r JOIN users u ON u.id = r.user_id`,
		rating.ID, rating.UserID, rating.MangaID, rating.Score, comment, rating.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("評価のUPSERTに失敗しました: %w", err)
	}
	return rt, nil
}

// ListByManga は作成日時の新しい順にマンガの評価一覧をユーザー名付きで返す。
func (r *PostgresRatingRepo) ListByManga(ctx context.Context, mangaID string) ([]*model.Rating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+`
		 FROM ratings r JOIN users u ON u.id = r.user_id
		 WHERE r.manga_id = $1
		 ORDER BY r.created_at DESC`,
		mangaID,
	)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ratings := []*model.Rating{}
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("評価行の読み取りに失敗しました: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("評価一覧の走査に失敗しました: %w", err)
	}
	return ratings, nil
}

// Summary はマンガの平均スコアと件数を返す。評価がない場合は0を返す。
func (r *PostgresRatingRepo) Summary(ctx context.Context, mangaID string) (model.RatingSummary, error) {
	var s model.RatingSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(score), 0)::float8, COUNT(*) FROM ratings WHERE manga_id = $1`,
		mangaID,
	).Scan(&s.Average, &s.Count)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("平均評価の取得に失敗しました: %w", err)
	}
	return s, nil
}

// FindByUserAndManga はユーザーのマンガ評価を取得する。見つからない場合はnilを返す。
func (r *PostgresRatingRepo) FindByUserAndManga(ctx context.Context, userID, mangaID string) (*model.Rating, error) {
	rt, err := scanRating(r.db.QueryRowContext(ctx,
		`SELECT `+ratingColumns+`
		 FROM ratings r JOIN users u ON u.id = r.user_id
		 WHERE r.user_id = $1 AND r.manga_id = $2`,
		userID, mangaID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("評価の取得に失敗しました: %w", err)
	}
	return rt, nil
}

// Delete はユーザーのマンガ評価を削除する。
func (r *PostgresRatingRepo) Delete(ctx context.Context, userID, mangaID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE user_id = $1 AND manga_id = $2`,
		userID, mangaID,
	)
	if err != nil {
		return fmt.Errorf("評価の削除に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("評価の削除に失敗しました: %w", err)
	}
	return nil
}

var _ RatingRepository = (*PostgresRatingRepo)(nil)
