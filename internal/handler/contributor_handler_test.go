package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/mangashelf/internal/model"
)

// mockContributorService はContributorServiceInterfaceのモック実装。
// 所有者以外からのアクセスはMANGA_NOT_FOUNDとして扱う。
type mockContributorService struct {
	owners   map[string]string // mangaID -> ownerID
	comments []*model.Comment
	deleted  []string
}

func (m *mockContributorService) owned(actor model.Actor, mangaID string) error {
	if owner, ok := m.owners[mangaID]; !ok || owner != actor.UserID {
		return model.NewMangaNotFoundError(mangaID)
	}
	return nil
}

func (m *mockContributorService) ListManga(ctx context.Context, actor model.Actor) ([]*model.Manga, error) {
	var out []*model.Manga
	for id, owner := range m.owners {
		if owner == actor.UserID {
			out = append(out, &model.Manga{ID: id, UserID: owner})
		}
	}
	return out, nil
}

func (m *mockContributorService) GetManga(ctx context.Context, actor model.Actor, id string) (*model.Manga, error) {
	if err := m.owned(actor, id); err != nil {
		return nil, err
	}
	return &model.Manga{ID: id, UserID: actor.UserID}, nil
}

func (m *mockContributorService) CreateManga(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error) {
	return &model.Manga{ID: "new", UserID: actor.UserID, Title: *input.Title}, nil
}

func (m *mockContributorService) UpdateManga(ctx context.Context, actor model.Actor, id string, input model.MangaInput) (*model.Manga, error) {
	if err := m.owned(actor, id); err != nil {
		return nil, err
	}
	return &model.Manga{ID: id, Title: *input.Title}, nil
}

func (m *mockContributorService) DeleteManga(ctx context.Context, actor model.Actor, id string) error {
	return m.owned(actor, id)
}

func (m *mockContributorService) ListChapters(ctx context.Context, actor model.Actor, mangaID string) ([]*model.Chapter, error) {
	if err := m.owned(actor, mangaID); err != nil {
		return nil, err
	}
	return []*model.Chapter{}, nil
}

func (m *mockContributorService) AddChapter(ctx context.Context, actor model.Actor, mangaID string, input model.ChapterInput) (*model.Chapter, error) {
	if err := m.owned(actor, mangaID); err != nil {
		return nil, err
	}
	return &model.Chapter{ID: "ch-new", MangaID: mangaID}, nil
}

func (m *mockContributorService) UpdateChapter(ctx context.Context, actor model.Actor, mangaID, id string, input model.ChapterInput) (*model.Chapter, error) {
	if err := m.owned(actor, mangaID); err != nil {
		return nil, err
	}
	return &model.Chapter{ID: id, MangaID: mangaID}, nil
}

func (m *mockContributorService) DeleteChapter(ctx context.Context, actor model.Actor, mangaID, id string) error {
	return m.owned(actor, mangaID)
}

func (m *mockContributorService) ListComments(ctx context.Context, actor model.Actor, mangaID string) ([]*model.Comment, error) {
	if err := m.owned(actor, mangaID); err != nil {
		return nil, err
	}
	return m.comments, nil
}

func (m *mockContributorService) DeleteComment(ctx context.Context, actor model.Actor, mangaID, id string) error {
	if err := m.owned(actor, mangaID); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func newMockContributorService() *mockContributorService {
	return &mockContributorService{
		owners: map[string]string{"m1": "contrib-1", "m2": "contrib-2"},
		comments: []*model.Comment{
			{ID: "c1", MangaID: "m1", Content: "hello"},
		},
	}
}

func TestContributorHandler_GetManga_OtherOwner_ReturnsNotFound(t *testing.T) {
	h := NewContributorHandler(newMockContributorService())

	req := httptest.NewRequest(http.MethodGet, "/api/contributor/manga/m2", nil)
	req = withChiURLParams(req, "mangaId", "m2")
	req = withIdentity(req, "contrib-1", model.RoleContributor)
	w := httptest.NewRecorder()

	h.GetManga(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestContributorHandler_CreateManga(t *testing.T) {
	h := NewContributorHandler(newMockContributorService())

	req := httptest.NewRequest(http.MethodPost, "/api/contributor/manga", strings.NewReader(`{"title":"Mine"}`))
	req = withIdentity(req, "contrib-1", model.RoleContributor)
	w := httptest.NewRecorder()

	h.CreateManga(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp mangaResponse
	decodeBody(t, w, &resp)
	if resp.UserID != "contrib-1" || resp.Title != "Mine" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestContributorHandler_UpdateChapter_UsesBothParams(t *testing.T) {
	h := NewContributorHandler(newMockContributorService())

	req := httptest.NewRequest(http.MethodPut, "/api/contributor/manga/m1/chapters/ch-9",
		strings.NewReader(`{"title":"Renamed"}`))
	req = withChiURLParams(req, "mangaId", "m1", "chapterId", "ch-9")
	req = withIdentity(req, "contrib-1", model.RoleContributor)
	w := httptest.NewRecorder()

	h.UpdateChapter(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp chapterResponse
	decodeBody(t, w, &resp)
	if resp.ID != "ch-9" || resp.MangaID != "m1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestContributorHandler_DeleteComment(t *testing.T) {
	svc := newMockContributorService()
	h := NewContributorHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/contributor/manga/m1/comments/c1", nil)
	req = withChiURLParams(req, "mangaId", "m1", "commentId", "c1")
	req = withIdentity(req, "contrib-1", model.RoleContributor)
	w := httptest.NewRecorder()

	h.DeleteComment(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "c1" {
		t.Errorf("deleted = %v", svc.deleted)
	}
}

func TestContributorHandler_ListComments_OtherOwner(t *testing.T) {
	h := NewContributorHandler(newMockContributorService())

	req := httptest.NewRequest(http.MethodGet, "/api/contributor/manga/m1/comments", nil)
	req = withChiURLParams(req, "mangaId", "m1")
	req = withIdentity(req, "contrib-2", model.RoleContributor)
	w := httptest.NewRecorder()

	h.ListComments(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
