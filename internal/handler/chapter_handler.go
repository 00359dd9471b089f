package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// ChapterServiceInterface はチャプターハンドラーが必要とするサービスインターフェース。
type ChapterServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, mangaID string, input model.ChapterInput) (*model.Chapter, error)
	ListByManga(ctx context.Context, mangaID string) ([]*model.Chapter, error)
	Get(ctx context.Context, id string) (*model.Chapter, error)
	Update(ctx context.Context, actor model.Actor, id string, input model.ChapterInput) (*model.Chapter, error)
	Remove(ctx context.Context, actor model.Actor, id string) error
}

// ChapterHandler はチャプターのHTTPハンドラー。
type ChapterHandler struct {
	service ChapterServiceInterface
}

// NewChapterHandler はChapterHandlerを生成する。
func NewChapterHandler(service ChapterServiceInterface) *ChapterHandler {
	return &ChapterHandler{service: service}
}

// ListByManga はマンガのチャプター一覧を返す。
// GET /api/chapters/manga/{mangaId}
func (h *ChapterHandler) ListByManga(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.service.ListByManga(r.Context(), chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChapterResponses(chapters))
}

// Get は指定IDのチャプターを返す。
// GET /api/chapters/id/{id}
func (h *ChapterHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChapterResponse(c))
}

// Create はマンガにチャプターを追加する。
// POST /api/chapters/{mangaId}
func (h *ChapterHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req chapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), actor, chi.URLParam(r, "mangaId"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChapterResponse(c))
}

// Update はチャプターを部分更新する。
// PATCH /api/chapters/{id}
func (h *ChapterHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req chapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChapterResponse(c))
}

// Delete はチャプターを削除する。
// DELETE /api/chapters/{id}
func (h *ChapterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
