// Package contributor は投稿者パネル向けの操作を提供する。
// すべての操作は呼び出し元が登録したマンガに限定され、他人のマンガは存在しないものとして扱う。
package contributor

import (
	"context"

	"github.com/hitoshi/mangashelf/internal/model"
)

// MangaStore は所有者で絞り込んだマンガ操作のインターフェース。
type MangaStore interface {
	List(ctx context.Context, ownerID string) ([]*model.Manga, error)
	Create(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error)
	GetOwned(ctx context.Context, ownerID, id string) (*model.Manga, error)
	UpdateOwned(ctx context.Context, ownerID, id string, input model.MangaInput) (*model.Manga, error)
	RemoveOwned(ctx context.Context, ownerID, id string) error
}

// ChapterStore は所有者で絞り込んだチャプター操作のインターフェース。
type ChapterStore interface {
	ListOwned(ctx context.Context, ownerID, mangaID string) ([]*model.Chapter, error)
	CreateOwned(ctx context.Context, ownerID, mangaID string, input model.ChapterInput) (*model.Chapter, error)
	UpdateOwned(ctx context.Context, ownerID, mangaID, id string, input model.ChapterInput) (*model.Chapter, error)
	RemoveOwned(ctx context.Context, ownerID, mangaID, id string) error
}

// CommentStore は所有マンガに付いたコメント操作のインターフェース。
type CommentStore interface {
	ListForOwner(ctx context.Context, ownerID string) ([]*model.Comment, error)
	RemoveForOwner(ctx context.Context, ownerID, id string) error
}

// Service は投稿者パネルのサービス層。
type Service struct {
	mangas   MangaStore
	chapters ChapterStore
	comments CommentStore
}

// NewService はServiceを生成する。
func NewService(mangas MangaStore, chapters ChapterStore, comments CommentStore) *Service {
	return &Service{mangas: mangas, chapters: chapters, comments: comments}
}

// ListManga は自分が登録したマンガ一覧を返す。
func (s *Service) ListManga(ctx context.Context, actor model.Actor) ([]*model.Manga, error) {
	return s.mangas.List(ctx, actor.UserID)
}

// GetManga は自分が登録したマンガを返す。
func (s *Service) GetManga(ctx context.Context, actor model.Actor, id string) (*model.Manga, error) {
	return s.mangas.GetOwned(ctx, actor.UserID, id)
}

// CreateManga は呼び出し元を所有者としてマンガを登録する。
func (s *Service) CreateManga(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error) {
	return s.mangas.Create(ctx, actor, input)
}

func (s *Service) UpdateManga(ctx context.Context, actor model.Actor, id string, input model.MangaInput) (*model.Manga, error) {
	return s.mangas.UpdateOwned(ctx, actor.UserID, id, input)
}

func (s *Service) DeleteManga(ctx context.Context, actor model.Actor, id string) error {
	return s.mangas.RemoveOwned(ctx, actor.UserID, id)
}

// ListChapters は自分のマンガのチャプター一覧を返す。
func (s *Service) ListChapters(ctx context.Context, actor model.Actor, mangaID string) ([]*model.Chapter, error) {
	return s.chapters.ListOwned(ctx, actor.UserID, mangaID)
}

func (s *Service) AddChapter(ctx context.Context, actor model.Actor, mangaID string, input model.ChapterInput) (*model.Chapter, error) {
	return s.chapters.CreateOwned(ctx, actor.UserID, mangaID, input)
}

func (s *Service) UpdateChapter(ctx context.Context, actor model.Actor, mangaID, id string, input model.ChapterInput) (*model.Chapter, error) {
	return s.chapters.UpdateOwned(ctx, actor.UserID, mangaID, id, input)
}

func (s *Service) DeleteChapter(ctx context.Context, actor model.Actor, mangaID, id string) error {
	return s.chapters.RemoveOwned(ctx, actor.UserID, mangaID, id)
}

// ListComments は自分のマンガに付いたコメント一覧を返す。
func (s *Service) ListComments(ctx context.Context, actor model.Actor, mangaID string) ([]*model.Comment, error) {
	m, err := s.mangas.GetOwned(ctx, actor.UserID, mangaID)
	if err != nil {
		return nil, err
	}
	all, err := s.comments.ListForOwner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	comments := []*model.Comment{}
	for _, c := range all {
		if c.MangaID == m.ID {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// DeleteComment は自分のマンガに付いたコメントを削除する。
func (s *Service) DeleteComment(ctx context.Context, actor model.Actor, mangaID, id string) error {
	comments, err := s.ListComments(ctx, actor, mangaID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if c.ID == id {
			return s.comments.RemoveForOwner(ctx, actor.UserID, id)
		}
	}
	return model.NewCommentNotFoundError(id)
}
