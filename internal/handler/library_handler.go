package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// BookmarkServiceInterface はブックマーク操作に必要なサービスインターフェース。
type BookmarkServiceInterface interface {
	Create(ctx context.Context, userID, mangaKey string) (*model.Bookmark, error)
	Remove(ctx context.Context, userID, mangaKey string) error
	List(ctx context.Context, userID string) ([]*model.Bookmark, error)
	MangaKeys(ctx context.Context, userID string) ([]model.MangaKey, error)
	Exists(ctx context.Context, userID, mangaKey string) (bool, error)
}

// HistoryServiceInterface は閲覧履歴操作に必要なサービスインターフェース。
type HistoryServiceInterface interface {
	Upsert(ctx context.Context, userID, mangaKey string, chapterNumber float64, pageNumber int) (*model.History, error)
	List(ctx context.Context, userID string) ([]*model.History, error)
	Get(ctx context.Context, userID, mangaKey string) (*model.History, error)
	Remove(ctx context.Context, userID, mangaKey string) error
}

// RatingServiceInterface は評価操作に必要なサービスインターフェース。
type RatingServiceInterface interface {
	Upsert(ctx context.Context, userID, mangaKey string, score int, comment *string) (*model.Rating, error)
	ListForManga(ctx context.Context, mangaKey string) ([]*model.Rating, error)
	Average(ctx context.Context, mangaKey string) (model.RatingSummary, error)
	ForUser(ctx context.Context, userID, mangaKey string) (*model.Rating, error)
	Remove(ctx context.Context, userID, mangaKey string) error
}

// LibraryHandler はブックマーク・閲覧履歴・評価のHTTPハンドラー。
type LibraryHandler struct {
	bookmarks BookmarkServiceInterface
	histories HistoryServiceInterface
	ratings   RatingServiceInterface
}

// NewLibraryHandler はLibraryHandlerを生成する。
func NewLibraryHandler(bookmarks BookmarkServiceInterface, histories HistoryServiceInterface, ratings RatingServiceInterface) *LibraryHandler {
	return &LibraryHandler{
		bookmarks: bookmarks,
		histories: histories,
		ratings:   ratings,
	}
}

type bookmarkRequest struct {
	MangaID string `json:"mangaId"`
}

type historyRequest struct {
	MangaID       string  `json:"mangaId"`
	ChapterNumber float64 `json:"chapterNumber"`
	PageNumber    int     `json:"pageNumber"`
}

type ratingRequest struct {
	Score   int     `json:"score"`
	Comment *string `json:"comment"`
}

type mangaKeyResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId,omitempty"`
}

// CreateBookmark はマンガをライブラリに登録する。
// POST /api/bookmarks
func (h *LibraryHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req bookmarkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MangaID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("mangaIdは必須です"))
		return
	}

	b, err := h.bookmarks.Create(r.Context(), actor.UserID, req.MangaID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookmarkResponse(b))
}

// ListBookmarks はライブラリのマンガを新しい順に返す。
// GET /api/bookmarks
func (h *LibraryHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	bookmarks, err := h.bookmarks.List(r.Context(), actor.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]bookmarkResponse, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = toBookmarkResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// BookmarkIDs はライブラリに登録したマンガの識別子のみを返す。
// GET /api/bookmarks/ids
func (h *LibraryHandler) BookmarkIDs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	keys, err := h.bookmarks.MangaKeys(r.Context(), actor.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]mangaKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = mangaKeyResponse{ID: k.ID, ExternalID: k.ExternalID}
	}
	writeJSON(w, http.StatusOK, out)
}

// BookmarkStatus はマンガがライブラリに登録済みかを返す。
// GET /api/bookmarks/{mangaId}
func (h *LibraryHandler) BookmarkStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	exists, err := h.bookmarks.Exists(r.Context(), actor.UserID, chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isBookmarked": exists})
}

// DeleteBookmark はマンガをライブラリから外す。
// DELETE /api/bookmarks/{mangaId}
func (h *LibraryHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.bookmarks.Remove(r.Context(), actor.UserID, chi.URLParam(r, "mangaId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertHistory は最終閲覧位置を記録する。既存の記録は上書きする。
// POST /api/history
func (h *LibraryHandler) UpsertHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req historyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MangaID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("mangaIdは必須です"))
		return
	}

	hist, err := h.histories.Upsert(r.Context(), actor.UserID, req.MangaID, req.ChapterNumber, req.PageNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(hist))
}

// ListHistory は閲覧履歴を更新日時の新しい順に返す。
// GET /api/history
func (h *LibraryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	histories, err := h.histories.List(r.Context(), actor.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]historyResponse, len(histories))
	for i, hist := range histories {
		out[i] = toHistoryResponse(hist)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetHistory は指定マンガの閲覧位置を返す。
// GET /api/history/{mangaId}
func (h *LibraryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	hist, err := h.histories.Get(r.Context(), actor.UserID, chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(hist))
}

// DeleteHistory は指定マンガの閲覧履歴を削除する。
// DELETE /api/history/{mangaId}
func (h *LibraryHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.histories.Remove(r.Context(), actor.UserID, chi.URLParam(r, "mangaId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertRating はマンガを評価する。既存の評価は上書きする。
// POST /api/ratings/{mangaId}
func (h *LibraryHandler) UpsertRating(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ratingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rating, err := h.ratings.Upsert(r.Context(), actor.UserID, chi.URLParam(r, "mangaId"), req.Score, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRatingResponse(rating))
}

// ListRatings はマンガの評価一覧を新しい順に返す。
// GET /api/ratings/{mangaId}
func (h *LibraryHandler) ListRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.ratings.ListForManga(r.Context(), chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]ratingResponse, len(ratings))
	for i, rating := range ratings {
		out[i] = toRatingResponse(rating)
	}
	writeJSON(w, http.StatusOK, out)
}

// AverageRating はマンガの平均評価と件数を返す。
// GET /api/ratings/{mangaId}/average
func (h *LibraryHandler) AverageRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ratings.Average(r.Context(), chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"average": summary.Average,
		"count":   summary.Count,
	})
}

// UserRating はログインユーザー自身の評価を返す。
// GET /api/ratings/{mangaId}/user
func (h *LibraryHandler) UserRating(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	rating, err := h.ratings.ForUser(r.Context(), actor.UserID, chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRatingResponse(rating))
}

// DeleteRating はログインユーザー自身の評価を削除する。
// DELETE /api/ratings/{mangaId}
func (h *LibraryHandler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.ratings.Remove(r.Context(), actor.UserID, chi.URLParam(r, "mangaId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
