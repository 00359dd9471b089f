package handler

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// ViewServiceInterface は閲覧数ハンドラーが必要とするサービスインターフェース。
type ViewServiceInterface interface {
	Record(ctx context.Context, chapterID, userID, ip, userAgent string) (*model.View, error)
	CountForChapter(ctx context.Context, chapterID string) (int, error)
	CountForManga(ctx context.Context, mangaID string) (int, error)
	TopChapters(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error)
	TopManga(ctx context.Context, limit int) ([]model.MangaViewCount, error)
}

// ViewHandler は閲覧数のHTTPハンドラー。
type ViewHandler struct {
	service ViewServiceInterface
}

// NewViewHandler はViewHandlerを生成する。
func NewViewHandler(service ViewServiceInterface) *ViewHandler {
	return &ViewHandler{service: service}
}

type viewRequest struct {
	ChapterID string `json:"chapterId"`
}

type chapterViewResponse struct {
	ChapterID     string  `json:"chapterId"`
	Title         string  `json:"title"`
	ChapterNumber float64 `json:"chapterNumber"`
	ViewCount     int     `json:"viewCount"`
}

type mangaViewResponse struct {
	MangaID   string `json:"mangaId"`
	Title     string `json:"title"`
	ViewCount int    `json:"viewCount"`
}

// Record はチャプターの閲覧を1件記録する。
// POST /api/views
func (h *ViewHandler) Record(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req viewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChapterID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("chapterIdは必須です"))
		return
	}

	v, err := h.service.Record(r.Context(), req.ChapterID, actor.UserID, clientIP(r), r.UserAgent())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        v.ID,
		"chapterId": v.ChapterID,
		"createdAt": v.CreatedAt,
	})
}

// ChapterCount はチャプターの閲覧数を返す。
// GET /api/views/chapter/{id}
func (h *ViewHandler) ChapterCount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.service.CountForChapter(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapterId": id, "viewCount": n})
}

// MangaCount はマンガの全チャプター合計の閲覧数を返す。
// GET /api/views/manga/{id}
func (h *ViewHandler) MangaCount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.service.CountForManga(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mangaId": id, "viewCount": n})
}

// TopChapters はマンガ内で閲覧数の多いチャプターを返す。
// GET /api/views/top/chapters/{mangaId}?limit=10
func (h *ViewHandler) TopChapters(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.TopChapters(r.Context(), chi.URLParam(r, "mangaId"), queryInt(r, "limit"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]chapterViewResponse, len(counts))
	for i, c := range counts {
		out[i] = chapterViewResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// TopManga は閲覧数の多い内部マンガを返す。
// GET /api/views/top/manga?limit=10
func (h *ViewHandler) TopManga(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.TopManga(r.Context(), queryInt(r, "limit"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]mangaViewResponse, len(counts))
	for i, c := range counts {
		out[i] = mangaViewResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// clientIP はRemoteAddrからポートを除いたIPを返す。
// chiのRealIPミドルウェアがプロキシヘッダーを反映済みであることを前提とする。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
