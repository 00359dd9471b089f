package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// MangaServiceInterface はマンガハンドラーが必要とするサービスインターフェース。
type MangaServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error)
	List(ctx context.Context, ownerID string) ([]*model.Manga, error)
	Get(ctx context.Context, id string) (*model.Manga, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Manga, error)
	Search(ctx context.Context, query string) ([]*model.Manga, error)
	Update(ctx context.Context, actor model.Actor, id string, input model.MangaInput) (*model.Manga, error)
	Remove(ctx context.Context, actor model.Actor, id string) error
	Chapters(ctx context.Context, id string) ([]*model.Chapter, error)
	Genres(ctx context.Context) ([]model.Genre, error)
}

// MangaHandler はマンガとジャンルのHTTPハンドラー。
type MangaHandler struct {
	service MangaServiceInterface
}

// NewMangaHandler はMangaHandlerを生成する。
func NewMangaHandler(service MangaServiceInterface) *MangaHandler {
	return &MangaHandler{service: service}
}

// List はマンガ一覧を返す。userIdを指定すると登録者で絞り込む。
// GET /api/manga?userId=xxx
func (h *MangaHandler) List(w http.ResponseWriter, r *http.Request) {
	mangas, err := h.service.List(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponses(mangas))
}

// Search はタイトルまたは作者でマンガを検索する。
// GET /api/manga/search?query=xxx
func (h *MangaHandler) Search(w http.ResponseWriter, r *http.Request) {
	mangas, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponses(mangas))
}

// Get は指定IDのマンガを返す。
// GET /api/manga/{id}
func (h *MangaHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponse(m))
}

// GetByExternalID は外部カタログIDに対応するマンガを返す。
// GET /api/manga/mangadex/{id}
func (h *MangaHandler) GetByExternalID(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetByExternalID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponse(m))
}

// Chapters はマンガのチャプター一覧を話数の昇順で返す。
// GET /api/manga/{id}/chapters
func (h *MangaHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.service.Chapters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChapterResponses(chapters))
}

// Create はマンガを登録する。
// POST /api/manga
func (h *MangaHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req mangaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.Create(r.Context(), actor, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMangaResponse(m))
}

// Update はマンガ情報を部分更新する。
// PATCH /api/manga/{id}
func (h *MangaHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req mangaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMangaResponse(m))
}

// Delete はマンガを削除する。
// DELETE /api/manga/{id}
func (h *MangaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "マンガを削除しました"})
}

// Genres はジャンル一覧を名前順で返す。
// GET /api/genres
func (h *MangaHandler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.Genres(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGenreResponses(genres))
}
