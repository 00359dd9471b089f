package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/mangashelf/internal/model"
)

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	searchFn func(ctx context.Context, title string, limit int) (json.RawMessage, error)
	mangaFn  func(ctx context.Context, id string) (json.RawMessage, error)
}

func (m *mockCatalogService) Search(ctx context.Context, title string, limit int) (json.RawMessage, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, title, limit)
	}
	return json.RawMessage(`{"data":[]}`), nil
}

func (m *mockCatalogService) GetManga(ctx context.Context, id string) (json.RawMessage, error) {
	if m.mangaFn != nil {
		return m.mangaFn(ctx, id)
	}
	return json.RawMessage(`{"data":{"id":"` + id + `"}}`), nil
}

func (m *mockCatalogService) Aggregate(ctx context.Context, id, lang string) (json.RawMessage, error) {
	return json.RawMessage(`{"volumes":{}}`), nil
}

func (m *mockCatalogService) AtHomeServer(ctx context.Context, chapterID string) (json.RawMessage, error) {
	return json.RawMessage(`{"baseUrl":"https://example.org"}`), nil
}

func (m *mockCatalogService) Tags(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[]}`), nil
}

func TestCatalogHandler_Search_DefaultLimit(t *testing.T) {
	var gotTitle string
	var gotLimit int
	svc := &mockCatalogService{
		searchFn: func(ctx context.Context, title string, limit int) (json.RawMessage, error) {
			gotTitle, gotLimit = title, limit
			return json.RawMessage(`{"data":[{"id":"abc"}]}`), nil
		},
	}
	h := NewCatalogHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/manga?title=frieren", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotTitle != "frieren" || gotLimit != defaultCatalogSearchLimit {
		t.Errorf("title=%q limit=%d", gotTitle, gotLimit)
	}
	if got := w.Body.String(); got != `{"data":[{"id":"abc"}]}` {
		t.Errorf("body = %s, want upstream body relayed as-is", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCatalogHandler_GetManga_UpstreamFailure(t *testing.T) {
	svc := &mockCatalogService{
		mangaFn: func(ctx context.Context, id string) (json.RawMessage, error) {
			return nil, model.NewCatalogUnavailableError()
		},
	}
	h := NewCatalogHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/manga/abc", nil)
	req = withChiURLParams(req, "id", "abc")
	w := httptest.NewRecorder()

	h.GetManga(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}
