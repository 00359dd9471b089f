package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/mangashelf/internal/model"
)

// PostgresMangaRepo はPostgreSQLを使用したマンガリポジトリ。
type PostgresMangaRepo struct {
	db *sql.DB
}

// NewPostgresMangaRepo はPostgresMangaRepoを生成する。
func NewPostgresMangaRepo(db *sql.DB) *PostgresMangaRepo {
	return &PostgresMangaRepo{db: db}
}

const mangaColumns = `m.id, m.external_id, m.title, m.description, m.cover_file_name, m.author, m.artist,
	m.status, m.type, m.source, m.user_id, m.catalog_synced_at, m.created_at, m.updated_at`

func scanManga(row rowScanner) (*model.Manga, error) {
	m := &model.Manga{}
	var externalID, status, userID sql.NullString
	var syncedAt sql.NullTime
	err := row.Scan(&m.ID, &externalID, &m.Title, &m.Description, &m.CoverFileName, &m.Author, &m.Artist,
		&status, &m.Type, &m.Source, &userID, &syncedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.ExternalID = externalID.String
	m.Status = model.MangaStatus(status.String)
	m.UserID = userID.String
	if syncedAt.Valid {
		t := syncedAt.Time
		m.CatalogSyncedAt = &t
	}
	return m, nil
}

// queryer はsql.DBとsql.Txの共通メソッド。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadGenres は複数のマンガのジャンルを1クエリでまとめて読み込む。
func loadGenres(ctx context.Context, q queryer, mangas []*model.Manga) error {
	if len(mangas) == 0 {
		return nil
	}
	byID := make(map[string]*model.Manga, len(mangas))
	ids := make([]string, len(mangas))
	for i, m := range mangas {
		byID[m.ID] = m
		ids[i] = m.ID
		m.Genres = []model.Genre{}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT mg.manga_id, g.id, g.name
		 FROM manga_genres mg JOIN genres g ON g.id = mg.genre_id
		 WHERE mg.manga_id = ANY($1::uuid[])
		 ORDER BY g.name ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("ジャンルの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mangaID string
		var g model.Genre
		if err := rows.Scan(&mangaID, &g.ID, &g.Name); err != nil {
			return fmt.Errorf("ジャンル行の読み取りに失敗しました: %w", err)
		}
		if m, ok := byID[mangaID]; ok {
			m.Genres = append(m.Genres, g)
		}
	}
	return rows.Err()
}

func (r *PostgresMangaRepo) findOne(ctx context.Context, where string, arg any) (*model.Manga, error) {
	m, err := scanManga(r.db.QueryRowContext(ctx,
		`SELECT `+mangaColumns+` FROM manga m WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadGenres(ctx, r.db, []*model.Manga{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// FindByID は指定IDのマンガを取得する。見つからない場合はnilを返す。
func (r *PostgresMangaRepo) FindByID(ctx context.Context, id string) (*model.Manga, error) {
	if !validUUID(id) {
		return nil, nil
	}
	m, err := r.findOne(ctx, `m.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	return m, nil
}

// FindByExternalID は外部カタログIDでマンガを取得する。見つからない場合はnilを返す。
func (r *PostgresMangaRepo) FindByExternalID(ctx context.Context, externalID string) (*model.Manga, error) {
	if externalID == "" {
		return nil, nil
	}
	m, err := r.findOne(ctx, `m.external_id = $1`, externalID)
	if err != nil {
		return nil, fmt.Errorf("外部IDによるマンガの取得に失敗しました: %w", err)
	}
	return m, nil
}

// Create はマンガとジャンルの紐付けを同一トランザクションで作成する。
func (r *PostgresMangaRepo) Create(ctx context.Context, m *model.Manga) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO manga (id, external_id, title, description, cover_file_name, author, artist,
		                    status, type, source, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, nullString(m.ExternalID), m.Title, m.Description, m.CoverFileName, m.Author, m.Artist,
		nullString(string(m.Status)), m.Type, m.Source, nullString(m.UserID), m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("マンガの作成に失敗しました: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("マンガの作成に失敗しました: %w", err)
	}

	if err := insertMangaGenres(ctx, tx, m.ID, m.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

func insertMangaGenres(ctx context.Context, tx *sql.Tx, mangaID string, genres []model.Genre) error {
	for _, g := range genres {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO manga_genres (manga_id, genre_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			mangaID, g.ID,
		)
		if err != nil {
			return fmt.Errorf("ジャンルの紐付けに失敗しました: %w", err)
		}
	}
	return nil
}

// Update はマンガ情報を更新する。replaceGenresがtrueの場合はジャンルの紐付けも置き換える。
func (r *PostgresMangaRepo) Update(ctx context.Context, m *model.Manga, replaceGenres bool) error {
	if !validUUID(m.ID) {
		return ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE manga
		 SET title = $2, description = $3, cover_file_name = $4, author = $5, artist = $6,
		     status = $7, type = $8, updated_at = $9
		 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.CoverFileName, m.Author, m.Artist,
		nullString(string(m.Status)), m.Type, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("マンガの更新に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("マンガの更新に失敗しました: %w", err)
	}

	if replaceGenres {
		if _, err := tx.ExecContext(ctx, `DELETE FROM manga_genres WHERE manga_id = $1`, m.ID); err != nil {
			return fmt.Errorf("ジャンルの紐付け解除に失敗しました: %w", err)
		}
		if err := insertMangaGenres(ctx, tx, m.ID, m.Genres); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのマンガを削除する。
func (r *PostgresMangaRepo) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM manga WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("マンガの削除に失敗しました: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return fmt.Errorf("マンガの削除に失敗しました: %w", err)
	}
	return nil
}

// List は作成日時の新しい順にマンガ一覧と総件数を返す。
func (r *PostgresMangaRepo) List(ctx context.Context, filter MangaFilter) ([]*model.Manga, int, error) {
	var conds []string
	var args []any
	if filter.OwnerID != "" {
		if !validUUID(filter.OwnerID) {
			return []*model.Manga{}, 0, nil
		}
		args = append(args, filter.OwnerID)
		conds = append(conds, fmt.Sprintf("m.user_id = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conds = append(conds, fmt.Sprintf("m.source = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM manga m`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("マンガ件数の取得に失敗しました: %w", err)
	}

	query := `SELECT ` + mangaColumns + ` FROM manga m` + where + ` ORDER BY m.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	mangas, err := r.queryMangas(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return mangas, total, nil
}

// Search はタイトルまたは作者の部分一致でマンガを検索する。
func (r *PostgresMangaRepo) Search(ctx context.Context, query string, limit int) ([]*model.Manga, error) {
	return r.queryMangas(ctx,
		`SELECT `+mangaColumns+` FROM manga m
		 WHERE m.title ILIKE $1 OR m.author ILIKE $1
		 ORDER BY m.title ASC
		 LIMIT $2`,
		likePattern(query), limit,
	)
}

// ListNeedingCatalogSync はカタログ同期が必要なプレースホルダーマンガを取得する。
func (r *PostgresMangaRepo) ListNeedingCatalogSync(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
	return r.queryMangas(ctx,
		`SELECT `+mangaColumns+` FROM manga m
		 WHERE m.source <> 'internal'
		   AND m.external_id IS NOT NULL
		   AND (m.catalog_synced_at IS NULL OR m.catalog_synced_at < $1)
		 ORDER BY m.catalog_synced_at ASC NULLS FIRST
		 LIMIT $2`,
		staleBefore, limit,
	)
}

// UpdateCatalogMetadata はカタログから取得したメタデータと同期日時を更新する。
func (r *PostgresMangaRepo) UpdateCatalogMetadata(ctx context.Context, m *model.Manga, syncedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE manga
		 SET title = $2, description = $3, cover_file_name = $4, author = $5, artist = $6,
		     status = $7, catalog_synced_at = $8, updated_at = NOW()
		 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.CoverFileName, m.Author, m.Artist,
		nullString(string(m.Status)), syncedAt,
	)
	if err != nil {
		return fmt.Errorf("カタログメタデータの更新に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresMangaRepo) queryMangas(ctx context.Context, query string, args ...any) ([]*model.Manga, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("マンガ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	mangas := []*model.Manga{}
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, fmt.Errorf("マンガ行の読み取りに失敗しました: %w", err)
		}
		mangas = append(mangas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マンガ一覧の走査に失敗しました: %w", err)
	}
	if err := loadGenres(ctx, r.db, mangas); err != nil {
		return nil, err
	}
	return mangas, nil
}

var _ MangaRepository = (*PostgresMangaRepo)(nil)
