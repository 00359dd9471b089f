package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/mangashelf/internal/model"
	"github.com/hitoshi/mangashelf/internal/repository"
	"github.com/hitoshi/mangashelf/internal/view"
)

// mockViewService はViewServiceInterfaceのモック実装。
type mockViewService struct {
	recordFn      func(ctx context.Context, chapterID, userID, ip, userAgent string) (*model.View, error)
	topChaptersFn func(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error)
	topMangaFn    func(ctx context.Context, limit int) ([]model.MangaViewCount, error)
}

func (m *mockViewService) Record(ctx context.Context, chapterID, userID, ip, userAgent string) (*model.View, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, chapterID, userID, ip, userAgent)
	}
	return &model.View{ID: "v1", ChapterID: chapterID, CreatedAt: time.Now()}, nil
}

func (m *mockViewService) CountForChapter(ctx context.Context, chapterID string) (int, error) {
	return 42, nil
}

func (m *mockViewService) CountForManga(ctx context.Context, mangaID string) (int, error) {
	return 100, nil
}

func (m *mockViewService) TopChapters(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error) {
	if m.topChaptersFn != nil {
		return m.topChaptersFn(ctx, mangaID, limit)
	}
	return []model.ChapterViewCount{}, nil
}

func (m *mockViewService) TopManga(ctx context.Context, limit int) ([]model.MangaViewCount, error) {
	if m.topMangaFn != nil {
		return m.topMangaFn(ctx, limit)
	}
	return []model.MangaViewCount{}, nil
}

func TestViewHandler_Record_CapturesClientInfo(t *testing.T) {
	var gotChapter, gotUser, gotIP, gotUA string
	svc := &mockViewService{
		recordFn: func(ctx context.Context, chapterID, userID, ip, userAgent string) (*model.View, error) {
			gotChapter, gotUser, gotIP, gotUA = chapterID, userID, ip, userAgent
			return &model.View{ID: "v1", ChapterID: chapterID}, nil
		},
	}
	h := NewViewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/views", strings.NewReader(`{"chapterId":"ch-1"}`))
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("User-Agent", "reader-app/1.0")
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotChapter != "ch-1" || gotUser != "user-1" {
		t.Errorf("chapter=%q user=%q", gotChapter, gotUser)
	}
	if gotIP != "203.0.113.7" {
		t.Errorf("ip = %q, want %q", gotIP, "203.0.113.7")
	}
	if gotUA != "reader-app/1.0" {
		t.Errorf("user agent = %q, want %q", gotUA, "reader-app/1.0")
	}
}

func TestViewHandler_Record_ExternalManga_ReturnsBadRequest(t *testing.T) {
	svc := &mockViewService{
		recordFn: func(ctx context.Context, chapterID, userID, ip, userAgent string) (*model.View, error) {
			return nil, model.NewViewNotTrackedError()
		},
	}
	h := NewViewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/views", strings.NewReader(`{"chapterId":"ch-ext"}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeViewNotTracked {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeViewNotTracked)
	}
}

func TestViewHandler_Record_MissingChapterID(t *testing.T) {
	h := NewViewHandler(&mockViewService{})

	req := httptest.NewRequest(http.MethodPost, "/api/views", strings.NewReader(`{}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Record(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestViewHandler_ChapterCount(t *testing.T) {
	h := NewViewHandler(&mockViewService{})

	req := httptest.NewRequest(http.MethodGet, "/api/views/chapter/ch-1", nil)
	req = withChiURLParams(req, "id", "ch-1")
	w := httptest.NewRecorder()

	h.ChapterCount(w, req)

	var resp struct {
		ChapterID string `json:"chapterId"`
		ViewCount int    `json:"viewCount"`
	}
	decodeBody(t, w, &resp)
	if resp.ChapterID != "ch-1" || resp.ViewCount != 42 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestViewHandler_TopChapters_PassesLimit(t *testing.T) {
	var gotLimit int
	svc := &mockViewService{
		topChaptersFn: func(ctx context.Context, mangaID string, limit int) ([]model.ChapterViewCount, error) {
			gotLimit = limit
			return []model.ChapterViewCount{{ChapterID: "ch-1", Title: "Start", ChapterNumber: 1, ViewCount: 9}}, nil
		},
	}
	h := NewViewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/views/top/chapters/m1?limit=5", nil)
	req = withChiURLParams(req, "mangaId", "m1")
	w := httptest.NewRecorder()

	h.TopChapters(w, req)

	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}
	var resp []chapterViewResponse
	decodeBody(t, w, &resp)
	if len(resp) != 1 || resp[0].ViewCount != 9 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"198.51.100.2", "198.51.100.2"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}

// 不正な形式のIDでも集計系エンドポイントは500ではなく空の結果を返す
func TestViewHandler_MalformedID_ReturnsEmptyResult(t *testing.T) {
	svc := view.NewService(repository.NewPostgresViewRepo(nil), nil, nil, nil, nil)
	h := NewViewHandler(svc)

	tests := []struct {
		name    string
		path    string
		param   string
		handler http.HandlerFunc
		want    string
	}{
		{"chapter count", "/api/views/chapter/abc", "id", h.ChapterCount, `"viewCount":0`},
		{"manga count", "/api/views/manga/abc", "id", h.MangaCount, `"viewCount":0`},
		{"top chapters", "/api/views/top/chapters/abc", "mangaId", h.TopChapters, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req = withChiURLParams(req, tt.param, "abc")
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body = %s, want to contain %s", w.Body.String(), tt.want)
			}
		})
	}
}
