package repository

import "database/sql"

// Repositories はPostgreSQL実装のリポジトリ一式。
type Repositories struct {
	Users     *PostgresUserRepo
	Manga     *PostgresMangaRepo
	Genres    *PostgresGenreRepo
	Chapters  *PostgresChapterRepo
	Comments  *PostgresCommentRepo
	Bookmarks *PostgresBookmarkRepo
	Histories *PostgresHistoryRepo
	Ratings   *PostgresRatingRepo
	Views     *PostgresViewRepo
}

// NewRepositories は同じDB接続を共有するリポジトリ一式を生成する。
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Users:     NewPostgresUserRepo(db),
		Manga:     NewPostgresMangaRepo(db),
		Genres:    NewPostgresGenreRepo(db),
		Chapters:  NewPostgresChapterRepo(db),
		Comments:  NewPostgresCommentRepo(db),
		Bookmarks: NewPostgresBookmarkRepo(db),
		Histories: NewPostgresHistoryRepo(db),
		Ratings:   NewPostgresRatingRepo(db),
		Views:     NewPostgresViewRepo(db),
	}
}
