package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := NewBookmarkAlreadyExistsError()
	want := "[BOOKMARK_ALREADY_EXISTS] このマンガは既にライブラリに追加されています。"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsCode_UnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NewMangaNotFoundError("abc"))

	if !IsCode(wrapped, ErrCodeMangaNotFound) {
		t.Error("IsCode should find MANGA_NOT_FOUND through wrapping")
	}
	if IsCode(wrapped, ErrCodeChapterNotFound) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), ErrCodeMangaNotFound) {
		t.Error("IsCode should be false for non-APIError")
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleContributor, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("superuser").Valid() {
		t.Error("unknown role should be invalid")
	}
}

func TestMangaStatus_Valid(t *testing.T) {
	if !MangaStatus("").Valid() {
		t.Error("empty status should be accepted as unset")
	}
	if !MangaStatusHiatus.Valid() {
		t.Error("hiatus should be valid")
	}
	if MangaStatus("paused").Valid() {
		t.Error("unknown status should be invalid")
	}
}
