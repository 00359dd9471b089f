package library

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// 評価コメントの最大文字数
const maxRatingCommentLength = 1000

// CommentSanitizer は評価コメントのサニタイズを行う。
type CommentSanitizer interface {
	SanitizeComment(raw string) string
}

// RatingService はマンガの評価の登録・集計を提供する。
type RatingService struct {
	repo      repository.RatingRepository
	resolver  MangaResolver
	sanitizer CommentSanitizer
}

// NewRatingService はRatingServiceを生成する。
func NewRatingService(repo repository.RatingRepository, resolver MangaResolver, sanitizer CommentSanitizer) *RatingService {
	return &RatingService{repo: repo, resolver: resolver, sanitizer: sanitizer}
}

// Upsert はマンガを評価する。既に評価済みの場合はスコアを上書きし、
// commentが指定された場合のみコメントも上書きする。
func (s *RatingService) Upsert(ctx context.Context, userID, mangaKey string, score int, comment *string) (*model.Rating, error) {
	if score < model.MinRatingScore || score > model.MaxRatingScore {
		return nil, model.NewValidationError(fmt.Sprintf("scoreは%dから%dの範囲で指定してください", model.MinRatingScore, model.MaxRatingScore))
	}
	if comment != nil {
		c := s.sanitizer.SanitizeComment(*comment)
		if utf8.RuneCountInString(c) > maxRatingCommentLength {
			return nil, model.NewValidationError(fmt.Sprintf("commentは%d文字以内で指定してください", maxRatingCommentLength))
		}
		comment = &c
	}

	m, err := s.resolver.Resolve(ctx, mangaKey, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	r, err := s.repo.Upsert(ctx, &model.Rating{
		ID:        uuid.New().String(),
		UserID:    userID,
		MangaID:   m.ID,
		Score:     score,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("評価の保存に失敗しました: %w", err)
	}
	return r, nil
}

// ListForManga はマンガの評価一覧を新しい順に返す。未登録のマンガは空の一覧を返す。
func (s *RatingService) ListForManga(ctx context.Context, mangaKey string) ([]*model.Rating, error) {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return []*model.Rating{}, nil
	}
	ratings, err := s.repo.ListByManga(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}
	if ratings == nil {
		ratings = []*model.Rating{}
	}
	return ratings, nil
}

// Average はマンガの平均スコアと評価数を返す。評価がない場合はいずれも0。
func (s *RatingService) Average(ctx context.Context, mangaKey string) (model.RatingSummary, error) {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil || m == nil {
		return model.RatingSummary{}, err
	}
	summary, err := s.repo.Summary(ctx, m.ID)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("評価の集計に失敗しました: %w", err)
	}
	return summary, nil
}

// ForUser はユーザー自身のマンガ評価を返す。
func (s *RatingService) ForUser(ctx context.Context, userID, mangaKey string) (*model.Rating, error) {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, model.NewRatingNotFoundError()
	}
	r, err := s.repo.FindByUserAndManga(ctx, userID, m.ID)
	if err != nil {
		return nil, fmt.Errorf("評価の取得に失敗しました: %w", err)
	}
	if r == nil {
		return nil, model.NewRatingNotFoundError()
	}
	return r, nil
}

// Remove はユーザー自身のマンガ評価を削除する。
func (s *RatingService) Remove(ctx context.Context, userID, mangaKey string) error {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil {
		return err
	}
	if m == nil {
		return model.NewRatingNotFoundError()
	}
	if err := s.repo.Delete(ctx, userID, m.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewRatingNotFoundError()
		}
		return fmt.Errorf("評価の削除に失敗しました: %w", err)
	}
	return nil
}
