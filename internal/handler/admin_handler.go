package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mangashelf/internal/model"
)

// AdminServiceInterface は管理画面ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, req model.PageRequest) (model.Page[*model.User], error)
	UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListComments(ctx context.Context, req model.PageRequest) (model.Page[*model.Comment], error)
	ApproveComment(ctx context.Context, id string) (*model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ListInternalManga(ctx context.Context, req model.PageRequest) (model.Page[*model.Manga], error)
	DeleteManga(ctx context.Context, id string) error
	DeleteChapter(ctx context.Context, id string) error
}

// AdminHandler は管理者向けのHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// userUpdateRequest はユーザー更新リクエストのボディ。省略したフィールドは更新しない。
type userUpdateRequest struct {
	Role     *model.Role `json:"role"`
	IsActive *bool       `json:"isActive"`
}

// ListUsers はユーザー一覧をページ単位で返す。
// GET /api/admin/users?page=1&limit=10
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListUsers(r.Context(), pageRequestFromQuery(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, toUserResponse))
}

// UpdateUser はユーザーのロールや有効状態を更新する。
// PUT /api/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), model.UserUpdate{
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser はユーザーを削除する。管理者アカウントは削除できない。
// DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListComments は非表示を含む全コメントをページ単位で返す。
// GET /api/admin/comments?page=1&limit=10
func (h *AdminHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListComments(r.Context(), pageRequestFromQuery(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, toCommentResponse))
}

// ApproveComment はコメントを表示状態にする。
// POST /api/admin/comments/{id}/approve
func (h *AdminHandler) ApproveComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.ApproveComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// DeleteComment はコメントを削除する。
// DELETE /api/admin/comments/{id}
func (h *AdminHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteComment(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListManga は内部マンガをページ単位で返す。
// GET /api/admin/manga?page=1&limit=10
func (h *AdminHandler) ListManga(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListInternalManga(r.Context(), pageRequestFromQuery(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, toMangaResponse))
}

// DeleteManga は内部マンガを削除する。
// DELETE /api/admin/manga/{id}
func (h *AdminHandler) DeleteManga(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteManga(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteChapter は内部マンガのチャプターを削除する。
// DELETE /api/admin/chapters/{id}
func (h *AdminHandler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteChapter(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
