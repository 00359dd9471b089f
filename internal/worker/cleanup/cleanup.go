// Package cleanup は孤立したプレースホルダーマンガの自動削除ジョブを提供する。
// 外部カタログを参照するプレースホルダーのうち、ブックマーク・閲覧履歴・評価・コメントの
// いずれからも参照されず保持期間（デフォルト30日）を超過したものを日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const deleteOrphansQuery = `DELETE FROM manga m
WHERE m.source <> 'internal'
  AND m.created_at < now() - $1::interval
  AND NOT EXISTS (SELECT 1 FROM bookmarks b WHERE b.manga_id = m.id)
  AND NOT EXISTS (SELECT 1 FROM histories h WHERE h.manga_id = m.id)
  AND NOT EXISTS (SELECT 1 FROM ratings r WHERE r.manga_id = m.id)
  AND NOT EXISTS (SELECT 1 FROM comments c WHERE c.manga_id = m.id)`

// CleanupJob は孤立したプレースホルダーマンガの削除ジョブ。
// 何度実行しても結果が変わらない。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // プレースホルダーの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過した孤立プレースホルダーを削除する。
// 内部マンガは対象外。削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	result, err := j.db.ExecContext(ctx, deleteOrphansQuery, interval)
	if err != nil {
		j.logger.Error("プレースホルダークリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("プレースホルダークリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("プレースホルダークリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start はジョブを起動直後と以後intervalごとに実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("プレースホルダークリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("プレースホルダークリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
