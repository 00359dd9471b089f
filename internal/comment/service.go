// Package comment はマンガへのコメント投稿とモデレーションのドメインロジックを提供する。
package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// コメント本文の最大文字数
const maxContentLength = 2000

// MangaResolver はマンガキーを内部のマンガに変換する。
type MangaResolver interface {
	Resolve(ctx context.Context, key string, create bool) (*model.Manga, error)
}

// Sanitizer はコメント本文のサニタイズを行う。
type Sanitizer interface {
	SanitizeComment(raw string) string
}

// Service はコメントの投稿・取得・非表示切り替え・削除を提供する。
type Service struct {
	commentRepo repository.CommentRepository
	resolver    MangaResolver
	sanitizer   Sanitizer
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(commentRepo repository.CommentRepository, resolver MangaResolver, sanitizer Sanitizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		commentRepo: commentRepo,
		resolver:    resolver,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// Create はコメントを投稿する。呼び出し元が投稿者になる。
// parentIDを指定した場合は同じマンガのコメントへの返信として扱う。
func (s *Service) Create(ctx context.Context, actor model.Actor, mangaKey, content, parentID string) (*model.Comment, error) {
	content = s.sanitizer.SanitizeComment(content)
	if content == "" {
		return nil, model.NewValidationError("contentは必須です")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, model.NewValidationError(fmt.Sprintf("contentは%d文字以内で指定してください", maxContentLength))
	}

	m, err := s.resolver.Resolve(ctx, mangaKey, true)
	if err != nil {
		return nil, err
	}

	if parentID != "" {
		parent, err := s.commentRepo.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("返信先コメントの取得に失敗しました: %w", err)
		}
		if parent == nil {
			return nil, model.NewCommentNotFoundError(parentID)
		}
		if parent.MangaID != m.ID {
			return nil, model.NewValidationError("返信先コメントは同じマンガのコメントを指定してください")
		}
	}

	now := time.Now()
	c := &model.Comment{
		ID:        uuid.New().String(),
		MangaID:   m.ID,
		UserID:    actor.UserID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.commentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	// ユーザー名を含めて返すため再取得する
	created, err := s.commentRepo.FindByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if created == nil {
		return c, nil
	}
	return created, nil
}

// ListByManga はマンガの表示中コメントを新しい順に返す。
// マンガがまだ登録されていない場合は空の一覧を返す。
func (s *Service) ListByManga(ctx context.Context, mangaKey string) ([]*model.Comment, error) {
	m, err := s.resolver.Resolve(ctx, mangaKey, false)
	if model.IsCode(err, model.ErrCodeMangaNotFound) {
		return []*model.Comment{}, nil
	}
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByManga(ctx, m.ID, false)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return nonNil(comments), nil
}

// Get は指定IDのコメントを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Comment, error) {
	c, err := s.commentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCommentNotFoundError(id)
	}
	return c, nil
}

// ToggleHidden はコメントの非表示フラグを反転する。
func (s *Service) ToggleHidden(ctx context.Context, id string) (*model.Comment, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setHidden(ctx, c, !c.IsHidden)
}

// Approve はコメントを表示状態にする。
func (s *Service) Approve(ctx context.Context, id string) (*model.Comment, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setHidden(ctx, c, false)
}

func (s *Service) setHidden(ctx context.Context, c *model.Comment, hidden bool) (*model.Comment, error) {
	if err := s.commentRepo.SetHidden(ctx, c.ID, hidden); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewCommentNotFoundError(c.ID)
		}
		return nil, fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}
	c.IsHidden = hidden
	c.UpdatedAt = time.Now()

	s.logger.Info("コメントの表示状態を変更しました",
		slog.String("comment_id", c.ID),
		slog.Bool("is_hidden", hidden),
	)
	return c, nil
}

// Remove はコメントを削除する。投稿者本人または管理者のみ実行でき、それ以外はCOMMENT_NOT_OWNEDを返す。
func (s *Service) Remove(ctx context.Context, actor model.Actor, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.AuthorizeOwnership(actor.UserID, actor.Role, c.UserID) {
		return model.NewCommentNotOwnedError()
	}
	return s.delete(ctx, id)
}

// RemoveAny はコメントを無条件に削除する。管理画面から使う。
func (s *Service) RemoveAny(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// ListAll は非表示を含む全コメントをページ単位で返す。
func (s *Service) ListAll(ctx context.Context, req model.PageRequest) (model.Page[*model.Comment], error) {
	comments, total, err := s.commentRepo.List(ctx, req.Limit, req.Offset())
	if err != nil {
		return model.Page[*model.Comment]{}, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return model.NewPage(comments, total, req), nil
}

// ListForOwner は指定ユーザーが登録したマンガに付いたコメントを返す。
func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]*model.Comment, error) {
	comments, err := s.commentRepo.ListByMangaOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return nonNil(comments), nil
}

// RemoveForOwner は指定ユーザーが登録したマンガに付いたコメントを削除する。
// 他人のマンガのコメントは存在しないものとして扱う。
func (s *Service) RemoveForOwner(ctx context.Context, ownerID, id string) error {
	comments, err := s.ListForOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c.ID == id {
			return s.delete(ctx, id)
		}
	}
	return model.NewCommentNotFoundError(id)
}

func (s *Service) delete(ctx context.Context, id string) error {
	if err := s.commentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCommentNotFoundError(id)
		}
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	s.logger.Info("コメントを削除しました", slog.String("comment_id", id))
	return nil
}

func nonNil(comments []*model.Comment) []*model.Comment {
	if comments == nil {
		return []*model.Comment{}
	}
	return comments
}
