package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultCatalogSearchLimit は外部カタログ検索の既定件数。
const defaultCatalogSearchLimit = 20

// CatalogServiceInterface は外部カタログの読み取り専用インターフェース。
type CatalogServiceInterface interface {
	Search(ctx context.Context, title string, limit int) (json.RawMessage, error)
	GetManga(ctx context.Context, id string) (json.RawMessage, error)
	Aggregate(ctx context.Context, id, lang string) (json.RawMessage, error)
	AtHomeServer(ctx context.Context, chapterID string) (json.RawMessage, error)
	Tags(ctx context.Context) (json.RawMessage, error)
}

// CatalogHandler は外部カタログのレスポンスをそのまま中継するHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Search はタイトルで外部カタログを検索する。
// GET /api/catalog/manga?title=xxx&limit=20
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = defaultCatalogSearchLimit
	}
	h.relay(w)(h.service.Search(r.Context(), r.URL.Query().Get("title"), limit))
}

// GetManga は外部カタログのマンガ詳細を返す。
// GET /api/catalog/manga/{id}
func (h *CatalogHandler) GetManga(w http.ResponseWriter, r *http.Request) {
	h.relay(w)(h.service.GetManga(r.Context(), chi.URLParam(r, "id")))
}

// Aggregate は外部カタログの巻・話構成を返す。
// GET /api/catalog/manga/{id}/aggregate?lang=en
func (h *CatalogHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	h.relay(w)(h.service.Aggregate(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("lang")))
}

// AtHomeServer はチャプター画像の配信サーバー情報を返す。
// GET /api/catalog/at-home/{chapterId}
func (h *CatalogHandler) AtHomeServer(w http.ResponseWriter, r *http.Request) {
	h.relay(w)(h.service.AtHomeServer(r.Context(), chi.URLParam(r, "chapterId")))
}

// Tags は外部カタログのタグ一覧を返す。
// GET /api/catalog/tags
func (h *CatalogHandler) Tags(w http.ResponseWriter, r *http.Request) {
	h.relay(w)(h.service.Tags(r.Context()))
}

func (h *CatalogHandler) relay(w http.ResponseWriter) func(json.RawMessage, error) {
	return func(body json.RawMessage, err error) {
		if err != nil {
			handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}
