package contributor

import (
	"context"
	"testing"

	"github.com/hitoshi/mangashelf/internal/model"
)

// 所有者IDとして呼び出し元のユーザーIDが渡されることを記録するモック。
type recordingStore struct {
	owners []string
}

func (r *recordingStore) record(ownerID string) { r.owners = append(r.owners, ownerID) }

func (r *recordingStore) List(ctx context.Context, ownerID string) ([]*model.Manga, error) {
	r.record(ownerID)
	return []*model.Manga{}, nil
}
func (r *recordingStore) Create(ctx context.Context, actor model.Actor, input model.MangaInput) (*model.Manga, error) {
	r.record(actor.UserID)
	return &model.Manga{ID: "m-new", UserID: actor.UserID}, nil
}
func (r *recordingStore) GetOwned(ctx context.Context, ownerID, id string) (*model.Manga, error) {
	r.record(ownerID)
	if id != "m-own" {
		return nil, model.NewMangaNotFoundError(id)
	}
	return &model.Manga{ID: id, UserID: ownerID}, nil
}
func (r *recordingStore) UpdateOwned(ctx context.Context, ownerID, id string, input model.MangaInput) (*model.Manga, error) {
	r.record(ownerID)
	return &model.Manga{ID: id}, nil
}
func (r *recordingStore) RemoveOwned(ctx context.Context, ownerID, id string) error {
	r.record(ownerID)
	return nil
}
func (r *recordingStore) ListOwned(ctx context.Context, ownerID, mangaID string) ([]*model.Chapter, error) {
	r.record(ownerID)
	return []*model.Chapter{}, nil
}
func (r *recordingStore) CreateOwned(ctx context.Context, ownerID, mangaID string, input model.ChapterInput) (*model.Chapter, error) {
	r.record(ownerID)
	return &model.Chapter{MangaID: mangaID}, nil
}

type chapterStore struct{ *recordingStore }

func (c chapterStore) UpdateOwned(ctx context.Context, ownerID, mangaID, id string, input model.ChapterInput) (*model.Chapter, error) {
	c.record(ownerID)
	return &model.Chapter{ID: id}, nil
}
func (c chapterStore) RemoveOwned(ctx context.Context, ownerID, mangaID, id string) error {
	c.record(ownerID)
	return nil
}

func (r *recordingStore) ListForOwner(ctx context.Context, ownerID string) ([]*model.Comment, error) {
	r.record(ownerID)
	return []*model.Comment{
		{ID: "c-1", MangaID: "m-own"},
		{ID: "c-2", MangaID: "m-second"},
	}, nil
}
func (r *recordingStore) RemoveForOwner(ctx context.Context, ownerID, id string) error {
	r.record(ownerID)
	return nil
}

func TestService_ScopesEveryOperationToCaller(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, chapterStore{store}, store)
	actor := model.Actor{UserID: "u-7", Role: model.RoleContributor}
	ctx := context.Background()

	calls := []func() error{
		func() error { _, err := svc.ListManga(ctx, actor); return err },
		func() error { _, err := svc.GetManga(ctx, actor, "m-own"); return err },
		func() error { _, err := svc.CreateManga(ctx, actor, model.MangaInput{}); return err },
		func() error { _, err := svc.UpdateManga(ctx, actor, "m-own", model.MangaInput{}); return err },
		func() error { return svc.DeleteManga(ctx, actor, "m-own") },
		func() error { _, err := svc.ListChapters(ctx, actor, "m-own"); return err },
		func() error { _, err := svc.AddChapter(ctx, actor, "m-own", model.ChapterInput{}); return err },
		func() error { _, err := svc.UpdateChapter(ctx, actor, "m-own", "ch-1", model.ChapterInput{}); return err },
		func() error { return svc.DeleteChapter(ctx, actor, "m-own", "ch-1") },
		func() error { _, err := svc.ListComments(ctx, actor, "m-own"); return err },
		func() error { return svc.DeleteComment(ctx, actor, "m-own", "c-1") },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
	}

	// コメント操作は所有確認の分だけ呼び出しが増える
	if want := len(calls) + 3; len(store.owners) != want {
		t.Fatalf("recorded %d owner ids, want %d", len(store.owners), want)
	}
	for i, owner := range store.owners {
		if owner != "u-7" {
			t.Errorf("call %d owner = %q, want %q", i, owner, "u-7")
		}
	}
}

func TestService_GetManga_OtherOwnerNotFound(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, chapterStore{store}, store)

	_, err := svc.GetManga(context.Background(), model.Actor{UserID: "u-7", Role: model.RoleContributor}, "m-other")
	if !model.IsCode(err, model.ErrCodeMangaNotFound) {
		t.Errorf("GetManga() error = %v, want MANGA_NOT_FOUND", err)
	}
}

func TestService_ListComments_FiltersByManga(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, chapterStore{store}, store)
	actor := model.Actor{UserID: "u-7", Role: model.RoleContributor}

	comments, err := svc.ListComments(context.Background(), actor, "m-own")
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 || comments[0].ID != "c-1" {
		t.Errorf("comments = %v, want only c-1", comments)
	}

	if _, err := svc.ListComments(context.Background(), actor, "m-other"); !model.IsCode(err, model.ErrCodeMangaNotFound) {
		t.Errorf("ListComments(other) error = %v, want MANGA_NOT_FOUND", err)
	}
	if err := svc.DeleteComment(context.Background(), actor, "m-other", "c-9"); !model.IsCode(err, model.ErrCodeMangaNotFound) {
		t.Errorf("DeleteComment(other) error = %v, want MANGA_NOT_FOUND", err)
	}
	// 自分の別のマンガに付いたコメントは対象外
	if err := svc.DeleteComment(context.Background(), actor, "m-own", "c-2"); !model.IsCode(err, model.ErrCodeCommentNotFound) {
		t.Errorf("DeleteComment(c-2) error = %v, want COMMENT_NOT_FOUND", err)
	}
}
