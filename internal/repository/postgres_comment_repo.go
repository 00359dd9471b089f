package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

const commentColumns = `c.id, c.manga_id, c.user_id, u.username, c.parent_id, c.content, c.is_hidden, c.created_at, c.updated_at`

const commentFrom = ` FROM comments c JOIN users u ON u.id = c.user_id`

func scanComment(row rowScanner) (*model.Comment, error) {
	c := &model.Comment{}
	var parentID sql.NullString
	if err := row.Scan(&c.ID, &c.MangaID, &c.UserID, &c.Username, &parentID, &c.Content, &c.IsHidden, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	return c, nil
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, manga_id, user_id, parent_id, content, is_hidden, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.MangaID, c.UserID, nullString(c.ParentID), c.Content, c.IsHidden, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	if !validUUID(id) {
		return nil, nil
	}
	c, err := scanComment(r.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+commentFrom+` WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	return c, nil
}

// ListByManga は作成日時の新しい順にマンガのコメント一覧を返す。
func (r *PostgresCommentRepo) ListByManga(ctx context.Context, mangaID string, includeHidden bool) ([]*model.Comment, error) {
	return r.queryComments(ctx,
		`SELECT `+commentColumns+commentFrom+`
		 WHERE c.manga_id = $1 AND ($2 OR NOT c.is_hidden)
		 ORDER BY c.created_at DESC`,
		mangaID, includeHidden,
	)
}

// ListByMangaOwner は指定ユーザーが登録したマンガに付いたコメント一覧を返す。
func (r *PostgresCommentRepo) ListByMangaOwner(ctx context.Context, ownerID string) ([]*model.Comment, error) {
	return r.queryComments(ctx,
		`SELECT `+commentColumns+commentFrom+`
		 JOIN manga m ON m.id = c.manga_id
		 WHERE m.user_id = $1
		 ORDER BY c.created_at DESC`,
		ownerID,
	)
}

// List は非表示を含む全コメントを新しい順に返す。
func (r *PostgresCommentRepo) List(ctx context.Context, limit, offset int) ([]*model.Comment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("コメント件数の取得に失敗しました: %w", err)
	}
	comments, err := r.queryComments(ctx,
		`SELECT `+commentColumns+commentFrom+`
		 ORDER BY c.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// SetHidden はコメントの非表示フラグを更新する。
func (r *PostgresCommentRepo) SetHidden(ctx context.Context, id string, hidden bool) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET is_hidden = $2, updated_at = NOW() WHERE id = $1`,
		id, hidden,
	)
	if err != nil {
		return fmt.Errorf("コメントの表示状態の更新に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("コメントの表示状態の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのコメントを削除する。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresCommentRepo) queryComments(ctx context.Context, query string, args ...any) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	comments := []*model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("コメント行の読み取りに失敗しました: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の走査に失敗しました: %w", err)
	}
	return comments, nil
}

var _ CommentRepository = (*PostgresCommentRepo)(nil)
