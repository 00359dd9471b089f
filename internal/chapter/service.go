// Package chapter はマンガのチャプター管理のドメインロジックを提供する。
package chapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

const (
	maxTitleLength  = 255
	maxVolumeLength = 50
	maxPages        = 1000
)

// Service はチャプターの登録・取得・更新・削除を提供する。
// 変更操作は親マンガの所有者または管理者のみ実行できる。
type Service struct {
	chapterRepo repository.ChapterRepository
	mangaRepo   repository.MangaRepository
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(chapterRepo repository.ChapterRepository, mangaRepo repository.MangaRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chapterRepo: chapterRepo,
		mangaRepo:   mangaRepo,
		logger:      logger,
	}
}

// Create はマンガにチャプターを追加する。
// 同じマンガに同じチャプター番号が既に存在する場合はCHAPTER_NUMBER_EXISTSを返す。
func (s *Service) Create(ctx context.Context, actor model.Actor, mangaID string, input model.ChapterInput) (*model.Chapter, error) {
	m, err := s.findManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if !auth.AuthorizeOwnership(actor.UserID, actor.Role, m.UserID) {
		return nil, model.NewMangaNotOwnedError()
	}
	return s.create(ctx, m, input)
}

// CreateOwned は所有者本人のマンガにチャプターを追加する。所有していない場合はMANGA_NOT_FOUNDを返す。
func (s *Service) CreateOwned(ctx context.Context, ownerID, mangaID string, input model.ChapterInput) (*model.Chapter, error) {
	m, err := s.findOwnedManga(ctx, ownerID, mangaID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, m, input)
}

func (s *Service) create(ctx context.Context, m *model.Manga, input model.ChapterInput) (*model.Chapter, error) {
	if input.ChapterNumber == nil {
		return nil, model.NewValidationError("chapterNumberは必須です")
	}

	now := time.Now()
	c := &model.Chapter{
		ID:        uuid.New().String(),
		MangaID:   m.ID,
		Pages:     []string{},
		Source:    model.SourceInternal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := apply(c, input); err != nil {
		return nil, err
	}

	existing, err := s.chapterRepo.FindByMangaAndNumber(ctx, m.ID, c.ChapterNumber)
	if err != nil {
		return nil, fmt.Errorf("チャプターの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewChapterNumberExistsError(c.ChapterNumber)
	}

	if err := s.chapterRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewChapterNumberExistsError(c.ChapterNumber)
		}
		return nil, fmt.Errorf("チャプターの作成に失敗しました: %w", err)
	}

	s.logger.Info("チャプターを追加しました",
		slog.String("chapter_id", c.ID),
		slog.String("manga_id", m.ID),
		slog.Float64("chapter_number", c.ChapterNumber),
	)
	return c, nil
}

// ListByManga はマンガのチャプター一覧を番号の昇順で返す。
func (s *Service) ListByManga(ctx context.Context, mangaID string) ([]*model.Chapter, error) {
	if _, err := s.findManga(ctx, mangaID); err != nil {
		return nil, err
	}
	return s.list(ctx, mangaID)
}

// ListOwned は所有者本人のマンガのチャプター一覧を返す。
func (s *Service) ListOwned(ctx context.Context, ownerID, mangaID string) ([]*model.Chapter, error) {
	if _, err := s.findOwnedManga(ctx, ownerID, mangaID); err != nil {
		return nil, err
	}
	return s.list(ctx, mangaID)
}

func (s *Service) list(ctx context.Context, mangaID string) ([]*model.Chapter, error) {
	chapters, err := s.chapterRepo.ListByManga(ctx, mangaID)
	if err != nil {
		return nil, fmt.Errorf("チャプター一覧の取得に失敗しました: %w", err)
	}
	if chapters == nil {
		chapters = []*model.Chapter{}
	}
	return chapters, nil
}

// Get は指定IDのチャプターを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Chapter, error) {
	c, err := s.chapterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チャプターの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewChapterNotFoundError(id)
	}
	return c, nil
}

// Update はチャプターを更新する。
// チャプター番号の重複確認は番号を変更する場合のみ行う。
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, input model.ChapterInput) (*model.Chapter, error) {
	c, m, err := s.findWithManga(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.AuthorizeOwnership(actor.UserID, actor.Role, m.UserID) {
		return nil, model.NewMangaNotOwnedError()
	}
	return s.update(ctx, c, input)
}

// UpdateOwned は所有者本人のマンガのチャプターを更新する。
func (s *Service) UpdateOwned(ctx context.Context, ownerID, mangaID, id string, input model.ChapterInput) (*model.Chapter, error) {
	c, err := s.findOwnedChapter(ctx, ownerID, mangaID, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, c, input)
}

func (s *Service) update(ctx context.Context, c *model.Chapter, input model.ChapterInput) (*model.Chapter, error) {
	current := c.ChapterNumber
	if err := apply(c, input); err != nil {
		return nil, err
	}

	if c.ChapterNumber != current {
		existing, err := s.chapterRepo.FindByMangaAndNumber(ctx, c.MangaID, c.ChapterNumber)
		if err != nil {
			return nil, fmt.Errorf("チャプターの取得に失敗しました: %w", err)
		}
		if existing != nil && existing.ID != c.ID {
			return nil, model.NewChapterNumberExistsError(c.ChapterNumber)
		}
	}
	c.UpdatedAt = time.Now()

	if err := s.chapterRepo.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewChapterNumberExistsError(c.ChapterNumber)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewChapterNotFoundError(c.ID)
		}
		return nil, fmt.Errorf("チャプターの更新に失敗しました: %w", err)
	}
	return c, nil
}

// Remove はチャプターを削除する。
func (s *Service) Remove(ctx context.Context, actor model.Actor, id string) error {
	_, m, err := s.findWithManga(ctx, id)
	if err != nil {
		return err
	}
	if !auth.AuthorizeOwnership(actor.UserID, actor.Role, m.UserID) {
		return model.NewMangaNotOwnedError()
	}
	return s.delete(ctx, id)
}

// RemoveOwned は所有者本人のマンガのチャプターを削除する。
func (s *Service) RemoveOwned(ctx context.Context, ownerID, mangaID, id string) error {
	if _, err := s.findOwnedChapter(ctx, ownerID, mangaID, id); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// RemoveInternal は内部マンガのチャプターを削除する。管理画面から使う。
// 外部カタログのマンガに属するチャプターは存在しないものとして扱う。
func (s *Service) RemoveInternal(ctx context.Context, id string) error {
	_, m, err := s.findWithManga(ctx, id)
	if err != nil {
		return err
	}
	if !m.IsInternal() {
		return model.NewChapterNotFoundError(id)
	}
	return s.delete(ctx, id)
}

func (s *Service) delete(ctx context.Context, id string) error {
	if err := s.chapterRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewChapterNotFoundError(id)
		}
		return fmt.Errorf("チャプターの削除に失敗しました: %w", err)
	}
	s.logger.Info("チャプターを削除しました", slog.String("chapter_id", id))
	return nil
}

func (s *Service) findManga(ctx context.Context, mangaID string) (*model.Manga, error) {
	m, err := s.mangaRepo.FindByID(ctx, mangaID)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMangaNotFoundError(mangaID)
	}
	return m, nil
}

func (s *Service) findOwnedManga(ctx context.Context, ownerID, mangaID string) (*model.Manga, error) {
	m, err := s.findManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if m.UserID == "" || m.UserID != ownerID {
		return nil, model.NewMangaNotFoundError(mangaID)
	}
	return m, nil
}

// findWithManga はチャプターと親マンガを取得する。
func (s *Service) findWithManga(ctx context.Context, id string) (*model.Chapter, *model.Manga, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.mangaRepo.FindByID(ctx, c.MangaID)
	if err != nil {
		return nil, nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, nil, model.NewChapterNotFoundError(id)
	}
	return c, m, nil
}

func (s *Service) findOwnedChapter(ctx context.Context, ownerID, mangaID, id string) (*model.Chapter, error) {
	if _, err := s.findOwnedManga(ctx, ownerID, mangaID); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.MangaID != mangaID {
		return nil, model.NewChapterNotFoundError(id)
	}
	return c, nil
}

// apply は入力値を検証し、nilでないフィールドをチャプターに反映する。
func apply(c *model.Chapter, input model.ChapterInput) error {
	if input.ChapterNumber != nil {
		n := *input.ChapterNumber
		if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			return model.NewValidationError("chapterNumberは0以上の数値で指定してください")
		}
		c.ChapterNumber = n
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if utf8.RuneCountInString(title) > maxTitleLength {
			return model.NewValidationError(fmt.Sprintf("titleは%d文字以内で指定してください", maxTitleLength))
		}
		c.Title = title
	}
	if input.Volume != nil {
		v := strings.TrimSpace(*input.Volume)
		if utf8.RuneCountInString(v) > maxVolumeLength {
			return model.NewValidationError(fmt.Sprintf("volumeは%d文字以内で指定してください", maxVolumeLength))
		}
		if v == "" {
			c.Volume = nil
		} else {
			c.Volume = &v
		}
	}
	if input.Pages != nil {
		if len(input.Pages) > maxPages {
			return model.NewValidationError(fmt.Sprintf("pagesは%d件以内で指定してください", maxPages))
		}
		pages := make([]string, 0, len(input.Pages))
		for _, p := range input.Pages {
			p = strings.TrimSpace(p)
			if p == "" {
				return model.NewValidationError("pagesに空の要素は指定できません")
			}
			pages = append(pages, p)
		}
		c.Pages = pages
	}
	if input.Source != nil {
		c.Source = strings.TrimSpace(*input.Source)
	}
	if input.SourceID != nil {
		c.SourceID = strings.TrimSpace(*input.SourceID)
	}
	return nil
}
