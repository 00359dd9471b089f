// Package manga はマンガとジャンルのドメインロジックを提供する。
package manga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
)

// 入力値の上限
const (
	maxTitleLength     = 255
	maxGenreNameLength = 50
	maxGenresPerManga  = 30
	maxCoverLength     = 500
	maxSearchResults   = 50
)

// DescriptionSanitizer はマンガ説明文のサニタイズを行う。
type DescriptionSanitizer interface {
	SanitizeDescription(raw string) string
}

// URLValidator はカバー画像URLの安全性を検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// TitleLookup は外部カタログIDから作品タイトルを取得する。
type TitleLookup interface {
	LookupTitle(ctx context.Context, externalID string) (string, error)
}

// Service はマンガの登録・取得・検索・更新・削除を提供する。
type Service struct {
	mangaRepo   repository.MangaRepository
	genreRepo   repository.GenreRepository
	chapterRepo repository.ChapterRepository
	sanitizer   DescriptionSanitizer
	urlGuard    URLValidator
	titles      TitleLookup
	logger      *slog.Logger
}

// NewService はServiceを生成する。titlesはnilでもよく、その場合プレースホルダーのタイトルには識別子を使う。
func NewService(
	mangaRepo repository.MangaRepository,
	genreRepo repository.GenreRepository,
	chapterRepo repository.ChapterRepository,
	sanitizer DescriptionSanitizer,
	urlGuard URLValidator,
	titles TitleLookup,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		mangaRepo:   mangaRepo,
		genreRepo:   genreRepo,
		chapterRepo: chapterRepo,
		sanitizer:   sanitizer,
		urlGuard:    urlGuard,
		titles:      titles,
		logger:      logger,
	}
}

// Create は内部マンガを登録する。登録者が所有者になる。
// ジャンルは名前で検索し、存在しなければ作成する。
func (s *Service) Create(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, model.NewValidationError("titleは必須です")
	}

	now := time.Now()
	m := &model.Manga{
		ID:        uuid.New().String(),
		Source:    model.SourceInternal,
		UserID:    actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(m, input); err != nil {
		return nil, err
	}

	genres, err := s.resolveGenres(ctx, input.Genres)
	if err != nil {
		return nil, err
	}
	m.Genres = genres

	if err := s.mangaRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("マンガの登録に失敗しました: %w", err)
	}

	s.logger.Info("マンガを登録しました",
		slog.String("manga_id", m.ID),
		slog.String("user_id", actor.UserID),
	)
	return m, nil
}

// List はマンガ一覧を新しい順に返す。ownerIDを指定した場合はその利用者が登録したものに絞り込む。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Manga, error) {
	mangas, _, err := s.mangaRepo.List(ctx, repository.MangaFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("マンガ一覧の取得に失敗しました: %w", err)
	}
	if mangas == nil {
		mangas = []*model.Manga{}
	}
	return mangas, nil
}

// Get は指定IDのマンガを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Manga, error) {
	m, err := s.mangaRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMangaNotFoundError(id)
	}
	return m, nil
}

// GetByExternalID は外部カタログIDに対応するマンガを返す。
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*model.Manga, error) {
	m, err := s.mangaRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMangaNotFoundError(externalID)
	}
	return m, nil
}

// Search はタイトルまたは作者の部分一致でマンガを検索する。
// 空白のみのクエリはエラーではなく空の結果を返す。
func (s *Service) Search(ctx context.Context, query string) ([]*model.Manga, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.Manga{}, nil
	}
	mangas, err := s.mangaRepo.Search(ctx, query, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("マンガの検索に失敗しました: %w", err)
	}
	if mangas == nil {
		mangas = []*model.Manga{}
	}
	return mangas, nil
}

// Update はマンガ情報を更新する。投稿者は自分が登録したマンガのみ更新できる。
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, input model.MangaInput) (*model.Manga, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.AuthorizeOwnership(actor.UserID, actor.Role, m.UserID) {
		return nil, model.NewMangaNotOwnedError()
	}
	return s.save(ctx, m, input)
}

// UpdateOwned は所有者本人のマンガのみを更新する。所有していない場合は存在しないものとして扱う。
func (s *Service) UpdateOwned(ctx context.Context, ownerID, id string, input model.MangaInput) (*model.Manga, error) {
	m, err := s.GetOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, m, input)
}

func (s *Service) save(ctx context.Context, m *model.Manga, input model.MangaInput) (*model.Manga, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, model.NewValidationError("titleは空にできません")
	}
	if err := s.apply(m, input); err != nil {
		return nil, err
	}

	replaceGenres := input.Genres != nil
	if replaceGenres {
		genres, err := s.resolveGenres(ctx, input.Genres)
		if err != nil {
			return nil, err
		}
		m.Genres = genres
	}
	m.UpdatedAt = time.Now()

	if err := s.mangaRepo.Update(ctx, m, replaceGenres); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewMangaNotFoundError(m.ID)
		}
		return nil, fmt.Errorf("マンガの更新に失敗しました: %w", err)
	}
	return m, nil
}

// Remove はマンガを削除する。管理者のみ実行できる。
func (s *Service) Remove(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.NewForbiddenError()
	}
	return s.delete(ctx, id)
}

// GetOwned は所有者本人のマンガを返す。所有していない場合はMANGA_NOT_FOUNDを返す。
func (s *Service) GetOwned(ctx context.Context, ownerID, id string) (*model.Manga, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID == "" || m.UserID != ownerID {
		return nil, model.NewMangaNotFoundError(id)
	}
	return m, nil
}

// RemoveOwned は所有者本人のマンガを削除する。
func (s *Service) RemoveOwned(ctx context.Context, ownerID, id string) error {
	if _, err := s.GetOwned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

func (s *Service) delete(ctx context.Context, id string) error {
	if err := s.mangaRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewMangaNotFoundError(id)
		}
		return fmt.Errorf("マンガの削除に失敗しました: %w", err)
	}
	s.logger.Info("マンガを削除しました", slog.String("manga_id", id))
	return nil
}

// Chapters はマンガのチャプター一覧を番号の昇順で返す。
func (s *Service) Chapters(ctx context.Context, id string) ([]*model.Chapter, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	chapters, err := s.chapterRepo.ListByManga(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チャプター一覧の取得に失敗しました: %w", err)
	}
	if chapters == nil {
		chapters = []*model.Chapter{}
	}
	return chapters, nil
}

// Genres はジャンル一覧を名前順で返す。
func (s *Service) Genres(ctx context.Context) ([]model.Genre, error) {
	genres, err := s.genreRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ジャンル一覧の取得に失敗しました: %w", err)
	}
	if genres == nil {
		genres = []model.Genre{}
	}
	return genres, nil
}

// Resolve はマンガキーを内部のマンガに変換する。
// キーは内部IDとして、次に外部カタログIDとして検索する。
// どちらにも該当せずcreateがtrueの場合は外部カタログのプレースホルダーを作成する。
func (s *Service) Resolve(ctx context.Context, key string, create bool) (*model.Manga, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, model.NewValidationError("mangaIdは必須です")
	}

	m, err := s.mangaRepo.FindByID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m != nil {
		return m, nil
	}

	m, err = s.mangaRepo.FindByExternalID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("マンガの取得に失敗しました: %w", err)
	}
	if m != nil {
		return m, nil
	}

	if !create {
		return nil, model.NewMangaNotFoundError(key)
	}
	return s.createPlaceholder(ctx, key)
}

// createPlaceholder は外部カタログのマンガを参照するプレースホルダーを作成する。
// タイトルはカタログから取得できなければ外部IDをそのまま使い、後続のカタログ同期で補完する。
func (s *Service) createPlaceholder(ctx context.Context, externalID string) (*model.Manga, error) {
	title := externalID
	if s.titles != nil {
		t, err := s.titles.LookupTitle(ctx, externalID)
		if err != nil {
			s.logger.Warn("カタログからのタイトル取得に失敗しました",
				slog.String("external_id", externalID),
				slog.String("error", err.Error()),
			)
		} else if t = strings.TrimSpace(t); t != "" {
			title = truncate(t, maxTitleLength)
		}
	}

	now := time.Now()
	m := &model.Manga{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		Title:      title,
		Source:     model.SourceMangaDex,
		Genres:     []model.Genre{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.mangaRepo.Create(ctx, m); err != nil {
		// 同時リクエストが先にプレースホルダーを作成した場合
		if errors.Is(err, repository.ErrDuplicate) {
			existing, findErr := s.mangaRepo.FindByExternalID(ctx, externalID)
			if findErr != nil {
				return nil, fmt.Errorf("マンガの取得に失敗しました: %w", findErr)
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("プレースホルダーマンガの作成に失敗しました: %w", err)
	}

	s.logger.Info("プレースホルダーマンガを作成しました",
		slog.String("manga_id", m.ID),
		slog.String("external_id", externalID),
	)
	return m, nil
}

// apply は入力値を検証し、nilでないフィールドをマンガに反映する。
func (s *Service) apply(m *model.Manga, input model.MangaInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if utf8.RuneCountInString(title) > maxTitleLength {
			return model.NewValidationError(fmt.Sprintf("titleは%d文字以内で指定してください", maxTitleLength))
		}
		m.Title = title
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return model.NewValidationError("statusはongoing, completed, hiatus, cancelledのいずれかを指定してください")
		}
		m.Status = *input.Status
	}
	if input.CoverFileName != nil {
		cover := strings.TrimSpace(*input.CoverFileName)
		if err := s.validateCover(cover); err != nil {
			return err
		}
		m.CoverFileName = cover
	}
	if input.Description != nil {
		m.Description = s.sanitizer.SanitizeDescription(*input.Description)
	}
	if input.Author != nil {
		m.Author = truncate(strings.TrimSpace(*input.Author), maxTitleLength)
	}
	if input.Artist != nil {
		m.Artist = truncate(strings.TrimSpace(*input.Artist), maxTitleLength)
	}
	if input.Type != nil {
		m.Type = truncate(strings.TrimSpace(*input.Type), 50)
	}
	return nil
}

// validateCover はカバー画像の参照を検証する。
// URLの場合はSSRFガードで公開ホストであることを確認し、ファイル名の場合はパス区切りを拒否する。
func (s *Service) validateCover(cover string) error {
	if cover == "" {
		return nil
	}
	if len(cover) > maxCoverLength {
		return model.NewInvalidCoverURLError(fmt.Sprintf("%d文字以内で指定してください", maxCoverLength))
	}
	if strings.Contains(cover, "://") {
		if err := s.urlGuard.ValidateURL(cover); err != nil {
			return model.NewInvalidCoverURLError(err.Error())
		}
		return nil
	}
	if strings.ContainsAny(cover, `/\`) || strings.Contains(cover, "..") {
		return model.NewInvalidCoverURLError("ファイル名にパス区切りは使用できません")
	}
	return nil
}

// resolveGenres はジャンル名を重複排除したうえでジャンルに変換する。
func (s *Service) resolveGenres(ctx context.Context, names []string) ([]model.Genre, error) {
	genres := []model.Genre{}
	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > maxGenreNameLength {
			return nil, model.NewValidationError(fmt.Sprintf("ジャンル名は%d文字以内で指定してください", maxGenreNameLength))
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(seen) > maxGenresPerManga {
			return nil, model.NewValidationError(fmt.Sprintf("ジャンルは%d件以内で指定してください", maxGenresPerManga))
		}

		g, err := s.genreRepo.FindOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("ジャンルの取得に失敗しました: %w", err)
		}
		genres = append(genres, *g)
	}
	return genres, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
