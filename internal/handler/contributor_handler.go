package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// ContributorServiceInterface は投稿者画面ハンドラーが必要とするサービスインターフェース。
// すべての操作は呼び出し元が登録したマンガに限定される。
type ContributorServiceInterface interface {
	ListManga(ctx context.Context, actor model.Actor) ([]*model.Manga, error)
	GetManga(ctx context.Context, actor model.Actor, id string) (*model.Manga, error)
	CreateManga(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error)
	UpdateManga(ctx context.Context, actor model.Actor, id string, input model.MangaInput) (*model.Manga, error)
	DeleteManga(ctx context.Context, actor model.Actor, id string) error
	ListChapters(ctx context.Context, actor model.Actor, mangaID string) ([]*model.Chapter, error)
	AddChapter(ctx context.Context, actor model.Actor, mangaID string, input model.ChapterInput) (*model.Chapter, error)
	UpdateChapter(ctx context.Context, actor model.Actor, mangaID, id string, input model.ChapterInput) (*model.Chapter, error)
	DeleteChapter(ctx context.Context, actor model.Actor, mangaID, id string) error
	ListComments(ctx context.Context, actor model.Actor, mangaID string) ([]*model.Comment, error)
	DeleteComment(ctx context.Context, actor model.Actor, mangaID, id string) error
}

// ContributorHandler は投稿者向けのHTTPハンドラー。
type ContributorHandler struct {
	service ContributorServiceInterface
}

// NewContributorHandler はContributorHandlerを生成する。
func NewContributorHandler(service ContributorServiceInterface) *ContributorHandler {
	return &ContributorHandler{service: service}
}

// ListManga は自分が登録したマンガの一覧を返す。
// GET /api/contributor/manga
func (h *ContributorHandler) ListManga(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	mangas, err := h.service.ListManga(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponses(mangas))
}

// GetManga は自分が登録したマンガを返す。
// GET /api/contributor/manga/{mangaId}
func (h *ContributorHandler) GetManga(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetManga(r.Context(), actor, chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponse(m))
}

// CreateManga はマンガを登録する。
// POST /api/contributor/manga
func (h *ContributorHandler) CreateManga(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req mangaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.service.CreateManga(r.Context(), actor, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMangaResponse(m))
}

// UpdateManga は自分が登録したマンガを更新する。
// PUT /api/contributor/manga/{mangaId}
func (h *ContributorHandler) UpdateManga(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req mangaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.service.UpdateManga(r.Context(), actor, chi.URLParam(r, "mangaId"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponse(m))
}

// DeleteManga は自分が登録したマンガを削除する。
// DELETE /api/contributor/manga/{mangaId}
func (h *ContributorHandler) DeleteManga(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteManga(r.Context(), actor, chi.URLParam(r, "mangaId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChapters は自分のマンガのチャプター一覧を返す。
// GET /api/contributor/manga/{mangaId}/chapters
func (h *ContributorHandler) ListChapters(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	chapters, err := h.service.ListChapters(r.Context(), actor, chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChapterResponses(chapters))
}

// AddChapter は自分のマンガにチャプターを追加する。
// POST /api/contributor/manga/{mangaId}/chapters
func (h *ContributorHandler) AddChapter(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req chapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.service.AddChapter(r.Context(), actor, chi.URLParam(r, "mangaId"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChapterResponse(c))
}

// UpdateChapter は自分のマンガのチャプターを更新する。
// PUT /api/contributor/manga/{mangaId}/chapters/{chapterId}
func (h *ContributorHandler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req chapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.service.UpdateChapter(r.Context(), actor,
		chi.URLParam(r, "mangaId"), chi.URLParam(r, "chapterId"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChapterResponse(c))
}

// DeleteChapter は自分のマンガのチャプターを削除する。
// DELETE /api/contributor/manga/{mangaId}/chapters/{chapterId}
func (h *ContributorHandler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	err := h.service.DeleteChapter(r.Context(), actor, chi.URLParam(r, "mangaId"), chi.URLParam(r, "chapterId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListComments は自分のマンガに付いたコメントを返す。
// GET /api/contributor/manga/{mangaId}/comments
func (h *ContributorHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	comments, err := h.service.ListComments(r.Context(), actor, chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponses(comments))
}

// DeleteComment は自分のマンガに付いたコメントを削除する。
// DELETE /api/contributor/manga/{mangaId}/comments/{commentId}
func (h *ContributorHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	err := h.service.DeleteComment(r.Context(), actor, chi.URLParam(r, "mangaId"), chi.URLParam(r, "commentId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
