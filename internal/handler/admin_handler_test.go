package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/mangashelf/internal/model"
)

// mockAdminService はAdminServiceInterfaceのモック実装。
type mockAdminService struct {
	listUsersFn  func(ctx context.Context, req model.PageRequest) (model.Page[*model.User], error)
	updateUserFn func(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	deleteUserFn func(ctx context.Context, id string) error
	listMangaFn  func(ctx context.Context, req model.PageRequest) (model.Page[*model.Manga], error)
	approveFn    func(ctx context.Context, id string) (*model.Comment, error)
}

func (m *mockAdminService) ListUsers(ctx context.Context, req model.PageRequest) (model.Page[*model.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, req)
	}
	return model.NewPage[*model.User](nil, 0, req.Normalize(10)), nil
}

func (m *mockAdminService) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, id, update)
	}
	return &model.User{ID: id}, nil
}

func (m *mockAdminService) DeleteUser(ctx context.Context, id string) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(ctx, id)
	}
	return nil
}

func (m *mockAdminService) ListComments(ctx context.Context, req model.PageRequest) (model.Page[*model.Comment], error) {
	return model.NewPage[*model.Comment](nil, 0, req.Normalize(10)), nil
}

func (m *mockAdminService) ApproveComment(ctx context.Context, id string) (*model.Comment, error) {
	if m.approveFn != nil {
		return m.approveFn(ctx, id)
	}
	return &model.Comment{ID: id}, nil
}

func (m *mockAdminService) DeleteComment(ctx context.Context, id string) error { return nil }

func (m *mockAdminService) ListInternalManga(ctx context.Context, req model.PageRequest) (model.Page[*model.Manga], error) {
	if m.listMangaFn != nil {
		return m.listMangaFn(ctx, req)
	}
	return model.NewPage[*model.Manga](nil, 0, req.Normalize(10)), nil
}

func (m *mockAdminService) DeleteManga(ctx context.Context, id string) error   { return nil }
func (m *mockAdminService) DeleteChapter(ctx context.Context, id string) error { return nil }

func TestAdminHandler_ListUsers_Pagination(t *testing.T) {
	var gotReq model.PageRequest
	svc := &mockAdminService{
		listUsersFn: func(ctx context.Context, req model.PageRequest) (model.Page[*model.User], error) {
			gotReq = req
			users := []*model.User{{ID: "u3"}, {ID: "u4"}}
			return model.NewPage(users, 5, model.PageRequest{Page: 2, Limit: 2}), nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users?page=2&limit=2", nil)
	w := httptest.NewRecorder()

	h.ListUsers(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotReq.Page != 2 || gotReq.Limit != 2 {
		t.Errorf("page request = %+v", gotReq)
	}

	var resp pageResponse[userResponse]
	decodeBody(t, w, &resp)
	if resp.Total != 5 || resp.Page != 2 || resp.TotalPages != 3 || len(resp.Items) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAdminHandler_ListManga_EmptyItemsIsArray(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/manga", nil)
	w := httptest.NewRecorder()

	h.ListManga(w, req)

	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want empty items array", w.Body.String())
	}
}

func TestAdminHandler_UpdateUser_PartialFields(t *testing.T) {
	var gotUpdate model.UserUpdate
	svc := &mockAdminService{
		updateUserFn: func(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
			gotUpdate = update
			return &model.User{ID: id, Role: model.RoleContributor, IsActive: true}, nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/u1", strings.NewReader(`{"role":"contributor"}`))
	req = withChiURLParams(req, "id", "u1")
	w := httptest.NewRecorder()

	h.UpdateUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUpdate.Role == nil || *gotUpdate.Role != model.RoleContributor {
		t.Errorf("role = %v", gotUpdate.Role)
	}
	if gotUpdate.IsActive != nil {
		t.Error("isActive should be nil when omitted")
	}
}

func TestAdminHandler_DeleteUser_AdminProtected(t *testing.T) {
	svc := &mockAdminService{
		deleteUserFn: func(ctx context.Context, id string) error {
			return model.NewAdminProtectedError()
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/admin-2", nil)
	req = withChiURLParams(req, "id", "admin-2")
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeAdminProtected {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeAdminProtected)
	}
}

func TestAdminHandler_ApproveComment(t *testing.T) {
	svc := &mockAdminService{
		approveFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return &model.Comment{ID: id, IsHidden: false}, nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/comments/c1/approve", nil)
	req = withChiURLParams(req, "id", "c1")
	w := httptest.NewRecorder()

	h.ApproveComment(w, req)

	var resp commentResponse
	decodeBody(t, w, &resp)
	if resp.ID != "c1" || resp.IsHidden {
		t.Errorf("resp = %+v", resp)
	}
}
