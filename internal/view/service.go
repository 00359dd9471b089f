// Package view はチャプター閲覧数の記録と集計を提供する。
package view

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

const maxUserAgentLength = 512

// Recorder は閲覧記録のメトリクスを記録する。
type Recorder interface {
	RecordView()
}

// Service は閲覧記録の追加と集計を提供する。
// 閲覧記録は追記のみで、重複排除や更新は行わない。
type Service struct {
	viewRepo    repository.ViewRepository
	chapterRepo repository.ChapterRepository
	mangaRepo   repository.MangaRepository
	metrics     Recorder
	logger      *slog.Logger
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	viewRepo repository.ViewRepository,
	chapterRepo repository.ChapterRepository,
	mangaRepo repository.MangaRepository,
	metrics Recorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		viewRepo:    viewRepo,
		chapterRepo: chapterRepo,
		mangaRepo:   mangaRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// Record はチャプターの閲覧を1件記録する。
// 閲覧数は内部マンガのチャプターのみ記録し、外部カタログのマンガはVIEW_NOT_TRACKEDを返す。
func (s *Service) Record(ctx context.Context, chapterID, userID, ip, userAgent string) (*model.View, error) {
	c, err := s.chapterRepo.FindByID(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("チャプターの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewChapterNotFoundError(chapterID)
	}

	m, err := s.mangaRepo.FindByID(ctx, c.MangaID)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewChapterNotFoundError(chapterID)
	}
	if !m.IsInternal() {
		return nil, model.NewViewNotTrackedError()
	}

	userAgent = truncateUserAgent(userAgent)
	v := &model.View{
		ID:        uuid.New().String(),
		ChapterID: chapterID,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
	if err := s.viewRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("閲覧記録の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordView()
	}
	return v, nil
}

// CountForChapter はチャプターの閲覧数を返す。
func (s *Service) CountForChapter(ctx context.Context, chapterID string) (int, error) {
	n, err := s.viewRepo.CountByChapter(ctx, chapterID)
	if err != nil {
		return 0, fmt.Errorf("閲覧数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// CountForManga はマンガ配下のチャプターの閲覧数合計を返す。
func (s *Service) CountForManga(ctx context.Context, mangaID string) (int, error) {
	n, err := s.viewRepo.CountByManga(ctx, mangaID)
	if err != nil {
		return 0, fmt.Errorf("閲覧数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// TopChapters はマンガ内で閲覧数の多いチャプターを返す。
func (s *Service) TopChapters(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error) {
	counts, err := s.viewRepo.TopChapters(ctx, mangaID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("閲覧数ランキングの取得に失敗しました: %w", err)
	}
	if counts == nil {
		counts = []model.ChapterViewCount{}
	}
	return counts, nil
}

// TopManga は内部マンガのうち閲覧数の多いものを返す。
func (s *Service) TopManga(ctx context.Context, limit int) ([]model.MangaViewCount, error) {
	counts, err := s.viewRepo.TopManga(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("閲覧数ランキングの取得に失敗しました: %w", err)
	}
	if counts == nil {
		counts = []model.MangaViewCount{}
	}
	return counts, nil
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return model.DefaultPageLimit
	}
	if limit > model.MaxPageLimit {
		return model.MaxPageLimit
	}
	return limit
}

// truncateUserAgent は不正なUTF-8を取り除き、マルチバイト文字を分断しない位置でmaxUserAgentLengthバイト以内に切り詰める。
func truncateUserAgent(ua string) string {
	ua = strings.ToValidUTF8(ua, "")
	if len(ua) <= maxUserAgentLength {
		return ua
	}
	n := maxUserAgentLength
	for n > 0 && !utf8.RuneStart(ua[n]) {
		n--
	}
	return ua[:n]
}
