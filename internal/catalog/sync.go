package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/mangashelf/internal/model"
)

// MetadataFetcher はカタログからのメタデータ取得インターフェース。
// テスト時にモックに差し替え可能。
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, externalID string) (*Metadata, error)
}

// SyncStore は同期対象マンガの取得と更新のインターフェース。
type SyncStore interface {
	ListNeedingCatalogSync(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error)
	UpdateCatalogMetadata(ctx context.Context, manga *model.Manga, syncedAt time.Time) error
}

// SyncedRecorder は同期件数のメトリクス記録インターフェース。
type SyncedRecorder interface {
	RecordCatalogSynced(count int)
}

// SyncConfig は同期ジョブの設定パラメータ。
type SyncConfig struct {
	// Interval はジョブの実行間隔（デフォルト: 30分）。
	Interval time.Duration
	// APIInterval はAPI呼び出しの最低間隔（デフォルト: 1秒）。
	APIInterval time.Duration
	// MaxCallsPerCycle は1サイクルあたりの最大API呼び出し回数（デフォルト: 50）。
	MaxCallsPerCycle int
	// TTL はメタデータの再取得間隔（デフォルト: 24時間）。
	TTL time.Duration
}

// DefaultSyncConfig はデフォルトの同期ジョブ設定を返す。
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:         30 * time.Minute,
		APIInterval:      1 * time.Second,
		MaxCallsPerCycle: 50,
		TTL:              24 * time.Hour,
	}
}

// SyncJob はプレースホルダーマンガのメタデータ同期ジョブ。
// catalog_synced_atがNULLまたはTTLを経過したマンガを対象に、
// カタログからタイトル・説明・作者・連載状況・カバー画像を取得して更新する。
type SyncJob struct {
	store             SyncStore
	fetcher           MetadataFetcher
	metrics           SyncedRecorder
	logger            *slog.Logger
	config            SyncConfig
	consecutiveErrors int
	backoffUntil      time.Time
}

// NewSyncJob はSyncJobの新しいインスタンスを生成する。metricsはnilでもよい。
func NewSyncJob(store SyncStore, fetcher MetadataFetcher, metrics SyncedRecorder, logger *slog.Logger, config SyncConfig) *SyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncJob{
		store:   store,
		fetcher: fetcher,
		metrics: metrics,
		logger:  logger,
		config:  config,
	}
}

// Start は同期ジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *SyncJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info("カタログ同期ジョブを開始しました",
		slog.Duration("interval", j.config.Interval),
		slog.Duration("api_interval", j.config.APIInterval),
		slog.Int("max_calls_per_cycle", j.config.MaxCallsPerCycle),
	)

	// 起動直後に1回実行
	j.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("カタログ同期ジョブを停止しました")
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *SyncJob) runAndLog(ctx context.Context) {
	if err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("カタログ同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は1回の同期サイクルを実行する。
func (j *SyncJob) RunOnce(ctx context.Context) error {
	start := time.Now()

	if !j.backoffUntil.IsZero() && time.Now().Before(j.backoffUntil) {
		j.logger.Info("カタログ同期ジョブはバックオフ中のためスキップします",
			slog.Time("backoff_until", j.backoffUntil),
		)
		return nil
	}

	mangas, err := j.store.ListNeedingCatalogSync(ctx, time.Now().Add(-j.config.TTL), j.config.MaxCallsPerCycle)
	if err != nil {
		return fmt.Errorf("同期対象マンガの取得に失敗しました: %w", err)
	}
	if len(mangas) == 0 {
		j.logger.Info("カタログ同期の対象マンガはありません")
		return nil
	}

	var callCount, updatedCount int
	var hadError bool

	for _, m := range mangas {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if callCount >= j.config.MaxCallsPerCycle {
			j.logger.Info("1サイクルあたりの最大API呼び出し回数に達しました",
				slog.Int("call_count", callCount),
			)
			break
		}
		if m.ExternalID == "" {
			continue
		}

		// 初回は待たない
		if callCount > 0 && j.config.APIInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.config.APIInterval):
			}
		}
		callCount++

		md, err := j.fetcher.FetchMetadata(ctx, m.ExternalID)
		if err != nil {
			j.logger.Error("カタログからのメタデータ取得に失敗しました",
				slog.String("manga_id", m.ID),
				slog.String("external_id", m.ExternalID),
				slog.String("error", err.Error()),
			)
			hadError = true
			j.consecutiveErrors++
			if backoff := calculateErrorBackoff(j.consecutiveErrors); backoff > 0 {
				j.backoffUntil = time.Now().Add(backoff)
				j.logger.Warn("連続エラーによりバックオフを適用します",
					slog.Int("consecutive_errors", j.consecutiveErrors),
					slog.Duration("backoff_duration", backoff),
				)
				break
			}
			continue
		}

		applyMetadata(m, md)
		if err := j.store.UpdateCatalogMetadata(ctx, m, time.Now()); err != nil {
			j.logger.Error("カタログメタデータの保存に失敗しました",
				slog.String("manga_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		updatedCount++
	}

	if !hadError {
		j.consecutiveErrors = 0
		j.backoffUntil = time.Time{}
	}
	if j.metrics != nil && updatedCount > 0 {
		j.metrics.RecordCatalogSynced(updatedCount)
	}

	j.logger.Info("カタログ同期サイクルが完了しました",
		slog.Int("call_count", callCount),
		slog.Int("updated_manga", updatedCount),
		slog.Int("target_manga", len(mangas)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// applyMetadata は空でない値だけをマンガに反映する。
func applyMetadata(m *model.Manga, md *Metadata) {
	if md.Title != "" {
		m.Title = md.Title
	}
	if md.Description != "" {
		m.Description = md.Description
	}
	if md.Author != "" {
		m.Author = md.Author
	}
	if md.Artist != "" {
		m.Artist = md.Artist
	}
	if md.Status != "" {
		m.Status = md.Status
	}
	if md.CoverURL != "" {
		m.CoverFileName = md.CoverURL
	}
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
