package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// BookmarkService はライブラリ（ブックマーク）の追加・削除・一覧を提供する。
type BookmarkService struct {
	repo     repository.BookmarkRepository
	resolver MangaResolver
	logger   *slog.Logger
}

// NewBookmarkService はBookmarkServiceを生成する。
func NewBookmarkService(repo repository.BookmarkRepository, resolver MangaResolver, logger *slog.Logger) *BookmarkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookmarkService{repo: repo, resolver: resolver, logger: logger}
}

// Create はマンガをライブラリに追加する。
// 既に追加済みの場合は何も変更せずBOOKMARK_ALREADY_EXISTSを返す。
func (s *BookmarkService) Create(ctx context.Context, userID, mangaKey string) (*model.Bookmark, error) {
	m, err := s.resolver.Resolve(ctx, mangaKey, true)
	if err != nil {
		return nil, err
	}

	b := &model.Bookmark{
		ID:        uuid.New().String(),
		UserID:    userID,
		MangaID:   m.ID,
		Manga:     m,
		CreatedAt: time.Now(),
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("ブックマークの作成に失敗しました: %w", err)
	}
	if !created {
		return nil, model.NewBookmarkAlreadyExistsError()
	}

	s.logger.Info("ブックマークを追加しました",
		slog.String("user_id", userID),
		slog.String("manga_id", m.ID),
	)
	return b, nil
}

// Remove はマンガをライブラリから削除する。
func (s *BookmarkService) Remove(ctx context.Context, userID, mangaKey string) error {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil {
		return err
	}
	if m == nil {
		return model.NewBookmarkNotFoundError()
	}
	if err := s.repo.Delete(ctx, userID, m.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewBookmarkNotFoundError()
		}
		return fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}
	return nil
}

// List はライブラリのマンガを追加日時の新しい順に返す。
func (s *BookmarkService) List(ctx context.Context, userID string) ([]*model.Bookmark, error) {
	bookmarks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	if bookmarks == nil {
		bookmarks = []*model.Bookmark{}
	}
	return bookmarks, nil
}

// MangaKeys はライブラリのマンガの識別子のみを返す。
func (s *BookmarkService) MangaKeys(ctx context.Context, userID string) ([]model.MangaKey, error) {
	keys, err := s.repo.ListMangaKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	if keys == nil {
		keys = []model.MangaKey{}
	}
	return keys, nil
}

// Exists はマンガがライブラリに追加済みかを返す。
func (s *BookmarkService) Exists(ctx context.Context, userID, mangaKey string) (bool, error) {
	m, err := resolveExisting(ctx, s.resolver, mangaKey)
	if err != nil || m == nil {
		return false, err
	}
	exists, err := s.repo.Exists(ctx, userID, m.ID)
	if err != nil {
		return false, fmt.Errorf("ブックマークの確認に失敗しました: %w", err)
	}
	return exists, nil
}
