package catalog

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/mangashelf/internal/model"
)

// --- モック定義 ---

type mockStore struct {
	mu          sync.Mutex
	listFunc    func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error)
	updated     []*model.Manga
	updateError error
}

func (m *mockStore) ListNeedingCatalogSync(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, staleBefore, limit)
	}
	return nil, nil
}

func (m *mockStore) UpdateCatalogMetadata(ctx context.Context, manga *model.Manga, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateError != nil {
		return m.updateError
	}
	m.updated = append(m.updated, manga)
	return nil
}

type mockFetcher struct {
	calls     int
	fetchFunc func(ctx context.Context, externalID string) (*Metadata, error)
}

func (m *mockFetcher) FetchMetadata(ctx context.Context, externalID string) (*Metadata, error) {
	m.calls++
	return m.fetchFunc(ctx, externalID)
}

func placeholders(n int) []*model.Manga {
	out := make([]*model.Manga, n)
	for i := range out {
		ext := string(rune('a' + i))
		out[i] = &model.Manga{ID: "m-" + ext, ExternalID: "ext-" + ext, Title: "ext-" + ext, Source: model.SourceMangaDex}
	}
	return out
}

func testSyncConfig() SyncConfig {
	cfg := DefaultSyncConfig()
	cfg.APIInterval = 0
	cfg.MaxCallsPerCycle = 10
	return cfg
}

// --- テスト ---

func TestDefaultSyncConfig(t *testing.T) {
	cfg := DefaultSyncConfig()
	if cfg.Interval != 30*time.Minute || cfg.MaxCallsPerCycle != 50 || cfg.TTL != 24*time.Hour {
		t.Errorf("DefaultSyncConfig() = %+v", cfg)
	}
}

func TestSyncJob_RunOnce_UpdatesMetadata(t *testing.T) {
	var gotStale time.Time
	var gotLimit int
	store := &mockStore{listFunc: func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
		gotStale, gotLimit = staleBefore, limit
		return placeholders(2), nil
	}}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, externalID string) (*Metadata, error) {
		return &Metadata{Title: "Title " + externalID, Author: "Author", Status: model.MangaStatusCompleted, CoverURL: "https://uploads.example/c.jpg"}, nil
	}}
	rec := &mockRecorder{}
	var buf bytes.Buffer
	job := NewSyncJob(store, fetcher, rec, newTestLogger(&buf), testSyncConfig())

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if gotLimit != 10 {
		t.Errorf("limit = %d, want 10", gotLimit)
	}
	if d := time.Since(gotStale); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("staleBefore should be about TTL ago, got %v", d)
	}
	if len(store.updated) != 2 {
		t.Fatalf("updated = %d, want 2", len(store.updated))
	}
	m := store.updated[0]
	if m.Title != "Title ext-a" || m.Author != "Author" || m.Status != model.MangaStatusCompleted || m.CoverFileName != "https://uploads.example/c.jpg" {
		t.Errorf("updated manga = %+v", m)
	}
	if rec.synced != 2 {
		t.Errorf("synced metric = %d, want 2", rec.synced)
	}
}

// 空のメタデータ項目は既存値を上書きしない
func TestSyncJob_RunOnce_KeepsExistingValues(t *testing.T) {
	store := &mockStore{listFunc: func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
		return []*model.Manga{{ID: "m-1", ExternalID: "ext-1", Title: "Old", Description: "Old desc"}}, nil
	}}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, externalID string) (*Metadata, error) {
		return &Metadata{Title: "New"}, nil
	}}
	job := NewSyncJob(store, fetcher, nil, nil, testSyncConfig())

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := store.updated[0]; got.Title != "New" || got.Description != "Old desc" {
		t.Errorf("updated = %+v", got)
	}
}

func TestSyncJob_RunOnce_NoTargets(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, externalID string) (*Metadata, error) {
		t.Error("fetcher should not be called")
		return nil, nil
	}}
	job := NewSyncJob(&mockStore{}, fetcher, nil, nil, testSyncConfig())

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
}

func TestSyncJob_RunOnce_ListError(t *testing.T) {
	store := &mockStore{listFunc: func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
		return nil, errors.New("db down")
	}}
	job := NewSyncJob(store, &mockFetcher{}, nil, nil, testSyncConfig())

	if err := job.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() should return the repository error")
	}
}

func TestSyncJob_RunOnce_MaxCallsPerCycle(t *testing.T) {
	store := &mockStore{listFunc: func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
		return placeholders(5), nil
	}}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, externalID string) (*Metadata, error) {
		return &Metadata{Title: "t"}, nil
	}}
	cfg := testSyncConfig()
	cfg.MaxCallsPerCycle = 3
	job := NewSyncJob(store, fetcher, nil, nil, cfg)

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 3 {
		t.Errorf("calls = %d, want 3", fetcher.calls)
	}
}

func TestSyncJob_RunOnce_BackoffAfterConsecutiveErrors(t *testing.T) {
	store := &mockStore{listFunc: func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
		return placeholders(5), nil
	}}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, externalID string) (*Metadata, error) {
		return nil, errors.New("upstream down")
	}}
	job := NewSyncJob(store, fetcher, nil, nil, testSyncConfig())

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	// 3回連続の失敗でバックオフに入り、残りは呼び出さない
	if fetcher.calls != 3 {
		t.Errorf("calls = %d, want 3", fetcher.calls)
	}
	if job.backoffUntil.IsZero() {
		t.Fatal("backoffUntil should be set")
	}

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 3 {
		t.Errorf("calls during backoff = %d, want 3", fetcher.calls)
	}
}

func TestSyncJob_RunOnce_SuccessResetsErrors(t *testing.T) {
	store := &mockStore{listFunc: func(ctx context.Context, staleBefore time.Time, limit int) ([]*model.Manga, error) {
		return placeholders(1), nil
	}}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context, externalID string) (*Metadata, error) {
		return &Metadata{Title: "ok"}, nil
	}}
	job := NewSyncJob(store, fetcher, nil, nil, testSyncConfig())
	job.consecutiveErrors = 2

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if job.consecutiveErrors != 0 {
		t.Errorf("consecutiveErrors = %d, want 0", job.consecutiveErrors)
	}
}

func TestCalculateErrorBackoff(t *testing.T) {
	tests := []struct {
		errors int
		want   time.Duration
	}{
		{1, 0},
		{2, 0},
		{3, 30 * time.Minute},
		{5, time.Hour},
		{10, 6 * time.Hour},
	}
	for _, tt := range tests {
		if got := calculateErrorBackoff(tt.errors); got != tt.want {
			t.Errorf("calculateErrorBackoff(%d) = %v, want %v", tt.errors, got, tt.want)
		}
	}
}

func TestSyncJob_Start_StopsOnCancel(t *testing.T) {
	job := NewSyncJob(&mockStore{}, &mockFetcher{}, nil, nil, testSyncConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
