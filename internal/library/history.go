package library

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// HistoryService は閲覧位置の記録と取得を提供する。
type HistoryService struct {
	repo     repository.HistoryRepository
	resolver MangaResolver
}

// NewHistoryService はHistoryServiceを生成する。
func NewHistoryService(repo repository.HistoryRepository, resolver MangaResolver) *HistoryService {
	return &HistoryService{repo: repo, resolver: resolver}
}

// Upsert は閲覧位置を記録する。既に記録がある場合はチャプター番号とページ番号を上書きする。
func (s *HistoryService) Upsert(ctx context.Context, userID, mangaKey string, chapterNumber float64, pageNumber int) (*model.History, error) {
	if math.IsNaN(chapterNumber) || math.IsInf(chapterNumber, 0) || chapterNumber < 0 {
		return nil, model.NewValidationError("chapterNumberは0以上の数値で指定してください")
	}
	if pageNumber < 0 {
		return nil, model.NewValidationError("pageNumberは0以上で指定してください")
	}

	m, err := s.resolver.Resolve(ctx, mangaKey, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	h, err := s.repo.Upsert(ctx, &model.History{
		ID:            uuid.New().String(),
		UserID:        userID,
		MangaID:       m.ID,
		ChapterNumber: chapterNumber,
		PageNumber:    pageNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴の保存に失敗しました: %w", err)
	}
	h.Manga = m
	return h, nil
}

// List は閲覧履歴を更新日時の新しい順に返す。
func (s *HistoryService) List(ctx context.Context, userID string) ([]*model.History, error) {
	histories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴の取得に失敗しました: %w", err)
	}
	if histories == nil {
		histories = []*model.History{}
	}
	return histories, nil
}

// Get はマンガの閲覧位置を返す。
func (s *HistoryService) Get(ctx context.Context, userID, mangaKey string) (*model.History, error) {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, model.NewHistoryNotFoundError()
	}
	h, err := s.repo.FindByUserAndManga(ctx, userID, m.ID)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴の取得に失敗しました: %w", err)
	}
	if h == nil {
		return nil, model.NewHistoryNotFoundError()
	}
	return h, nil
}

// Remove はマンガの閲覧履歴を削除する。
func (s *HistoryService) Remove(ctx context.Context, userID, mangaKey string) error {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil {
		return err
	}
	if m == nil {
		return model.NewHistoryNotFoundError()
	}
	if err := s.repo.Delete(ctx, userID, m.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewHistoryNotFoundError()
		}
		return fmt.Errorf("閲覧履歴の削除に失敗しました: %w", err)
	}
	return nil
}
