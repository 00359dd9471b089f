package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresGenreRepo はPostgreSQLを使用したジャンルリポジトリ。
type PostgresGenreRepo struct {
	db *sql.DB
}

// NewPostgresGenreRepo はPostgresGenreRepoを生成する。
func NewPostgresGenreRepo(db *sql.DB) *PostgresGenreRepo {
	return &PostgresGenreRepo{db: db}
}

// List は名前順にジャンル一覧を返す。
func (r *PostgresGenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("ジャンル一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	genres := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("ジャンル行の読み取りに失敗しました: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ジャンル一覧の走査に失敗しました: %w", err)
	}
	return genres, nil
}

// FindOrCreate は指定名のジャンルを取得し、存在しなければ作成する。
// 同時実行時も単一のSQL文で一意性を保つ。
func (r *PostgresGenreRepo) FindOrCreate(ctx context.Context, name string) (*model.Genre, error) {
	name = strings.TrimSpace(name)
	g := &model.Genre{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO genres (id, name) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name`,
		uuid.New().String(), name,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, fmt.Errorf("ジャンルの取得または作成に失敗しました: %w", err)
	}
	return g, nil
}

var _ GenreRepository = (*PostgresGenreRepo)(nil)
