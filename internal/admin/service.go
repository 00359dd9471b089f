// Package admin は管理画面向けの操作を提供する。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// CommentModerator は管理者によるコメント操作のインターフェース。
type CommentModerator interface {
	ListAll(ctx context.Context, req model.PageRequest) (model.Page[*model.Comment], error)
	Approve(ctx context.Context, id string) (*model.Comment, error)
	RemoveAny(ctx context.Context, id string) error
}

// ChapterRemover は内部マンガのチャプター削除インターフェース。
type ChapterRemover interface {
	RemoveInternal(ctx context.Context, id string) error
}

// Service は管理画面のサービス層。
// 呼び出し元が管理者であることはルーティングで保証する。
type Service struct {
	userRepo     repository.UserRepository
	mangaRepo    repository.MangaRepository
	comments     CommentModerator
	chapters     ChapterRemover
	defaultLimit int
	logger       *slog.Logger
}

// NewService はServiceを生成する。defaultLimitはlimit未指定時の1ページあたり件数。
func NewService(
	userRepo repository.UserRepository,
	mangaRepo repository.MangaRepository,
	comments CommentModerator,
	chapters ChapterRemover,
	defaultLimit int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		userRepo:     userRepo,
		mangaRepo:    mangaRepo,
		comments:     comments,
		chapters:     chapters,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// ListUsers はユーザー一覧をページ単位で返す。
func (s *Service) ListUsers(ctx context.Context, req model.PageRequest) (model.Page[*model.User], error) {
	req = req.Normalize(s.defaultLimit)
	users, total, err := s.userRepo.List(ctx, req.Limit, req.Offset())
	if err != nil {
		return model.Page[*model.User]{}, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return model.NewPage(users, total, req), nil
}

// UpdateUser はユーザーのロールと有効状態を更新する。
// 管理者アカウントは変更できない。
func (s *Service) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	if update.Role != nil && !update.Role.Valid() {
		return nil, model.NewValidationError("roleはuser, contributor, adminのいずれかを指定してください")
	}
	if _, err := s.findMutableUser(ctx, id); err != nil {
		return nil, err
	}

	u, err := s.userRepo.Update(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	s.logger.Info("ユーザーを更新しました",
		slog.String("user_id", id),
		slog.String("role", string(u.Role)),
		slog.Bool("is_active", u.IsActive),
	)
	return u, nil
}

// DeleteUser はユーザーを削除する。管理者アカウントは削除できない。
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.findMutableUser(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	s.logger.Info("ユーザーを削除しました", slog.String("user_id", id))
	return nil
}

// ListComments は非表示を含む全コメントをページ単位で返す。
func (s *Service) ListComments(ctx context.Context, req model.PageRequest) (model.Page[*model.Comment], error) {
	return s.comments.ListAll(ctx, req.Normalize(s.defaultLimit))
}

// ApproveComment はコメントを表示状態に戻す。
func (s *Service) ApproveComment(ctx context.Context, id string) (*model.Comment, error) {
	return s.comments.Approve(ctx, id)
}

// DeleteComment はコメントを削除する。
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	return s.comments.RemoveAny(ctx, id)
}

// ListInternalManga は投稿者が登録した内部マンガをページ単位で返す。
func (s *Service) ListInternalManga(ctx context.Context, req model.PageRequest) (model.Page[*model.Manga], error) {
	req = req.Normalize(s.defaultLimit)
	mangas, total, err := s.mangaRepo.List(ctx, repository.MangaFilter{
		Source: model.SourceInternal,
		Limit:  req.Limit,
		Offset: req.Offset(),
	})
	if err != nil {
		return model.Page[*model.Manga]{}, fmt.Errorf("マンガ一覧の取得に失敗しました: %w", err)
	}
	return model.NewPage(mangas, total, req), nil
}

// DeleteManga は内部マンガを削除する。外部カタログのマンガは対象外でMANGA_NOT_FOUNDを返す。
func (s *Service) DeleteManga(ctx context.Context, id string) error {
	m, err := s.mangaRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m == nil || !m.IsInternal() {
		return model.NewMangaNotFoundError(id)
	}
	if err := s.mangaRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewMangaNotFoundError(id)
		}
		return fmt.Errorf("マンガの削除に失敗しました: %w", err)
	}
	s.logger.Info("マンガを削除しました", slog.String("manga_id", id))
	return nil
}

// DeleteChapter は内部マンガのチャプターを削除する。
func (s *Service) DeleteChapter(ctx context.Context, id string) error {
	return s.chapters.RemoveInternal(ctx, id)
}

func (s *Service) findMutableUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	if u.Role == model.RoleAdmin {
		return nil, model.NewAdminProtectedError()
	}
	return u, nil
}
