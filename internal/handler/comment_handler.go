package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, mangaKey, content, parentID string) (*model.Comment, error)
	ListByManga(ctx context.Context, mangaKey string) ([]*model.Comment, error)
	Get(ctx context.Context, id string) (*model.Comment, error)
	ToggleHidden(ctx context.Context, id string) (*model.Comment, error)
	Remove(ctx context.Context, actor model.Actor, id string) error
}

// CommentHandler はコメントのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId"`
}

// ListByManga はマンガの表示中コメントを新しい順に返す。
// GET /api/comments/{mangaId}
func (h *CommentHandler) ListByManga(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListByManga(r.Context(), chi.URLParam(r, "mangaId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponses(comments))
}

// Get は指定IDのコメントを返す。
// GET /api/comments/id/{id}
func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// Create はマンガにコメントを投稿する。
// POST /api/comments/{mangaId}
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), actor, chi.URLParam(r, "mangaId"), req.Content, req.ParentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

// ToggleHidden はコメントの表示・非表示を切り替える。
// PATCH /api/comments/{id}/toggle-hidden
func (h *CommentHandler) ToggleHidden(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.ToggleHidden(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// Delete はコメントを削除する。投稿者本人または管理者のみ削除できる。
// DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
