// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, manga, library, comment, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeAdminProtected      = "ADMIN_PROTECTED"
	ErrCodeMangaNotOwned       = "MANGA_NOT_OWNED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeMangaNotFound       = "MANGA_NOT_FOUND"
	ErrCodeChapterNotFound     = "CHAPTER_NOT_FOUND"
	ErrCodeChapterNumberExists = "CHAPTER_NUMBER_EXISTS"
	ErrCodeCommentNotFound     = "COMMENT_NOT_FOUND"
	ErrCodeCommentNotOwned     = "COMMENT_NOT_OWNED"
	ErrCodeBookmarkNotFound    = "BOOKMARK_NOT_FOUND"
	ErrCodeBookmarkExists      = "BOOKMARK_ALREADY_EXISTS"
	ErrCodeHistoryNotFound     = "HISTORY_NOT_FOUND"
	ErrCodeRatingNotFound      = "RATING_NOT_FOUND"
	ErrCodeViewNotTracked      = "VIEW_NOT_TRACKED"
	ErrCodeInvalidCoverURL     = "INVALID_COVER_URL"
	ErrCodeCatalogUnavailable  = "CATALOG_UNAVAILABLE"
	ErrCodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// IsCode はerrがAPIErrorであり、指定コードを持つかを判定する。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "認証トークンが無効か有効期限切れです。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewAdminProtectedError は管理者アカウントの変更・削除を拒否するエラーを生成する。
func NewAdminProtectedError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminProtected,
		Message:  "管理者アカウントは変更・削除できません。",
		Category: "auth",
		Action:   "対象ユーザーを確認してください。",
	}
}

// NewMangaNotOwnedError は他人が作成したマンガを変更しようとした場合のエラーを生成する。
func NewMangaNotOwnedError() *APIError {
	return &APIError{
		Code:     ErrCodeMangaNotOwned,
		Message:  "このマンガを編集する権限がありません。",
		Category: "manga",
		Action:   "自分が登録したマンガのみ編集できます。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUserAlreadyExistsError はユーザー名またはメールアドレスの重複エラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "ユーザー名またはメールアドレスは既に使用されています。",
		Category: "auth",
		Action:   "別のユーザー名またはメールアドレスを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewMangaNotFoundError はマンガ未検出エラーを生成する。
func NewMangaNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeMangaNotFound,
		Message:  fmt.Sprintf("指定されたマンガが見つかりません: %s", key),
		Category: "manga",
		Action:   "マンガIDを確認してください。",
	}
}

// NewChapterNotFoundError はチャプター未検出エラーを生成する。
func NewChapterNotFoundError(chapterID string) *APIError {
	return &APIError{
		Code:     ErrCodeChapterNotFound,
		Message:  fmt.Sprintf("指定されたチャプターが見つかりません: %s", chapterID),
		Category: "manga",
		Action:   "チャプターIDを確認してください。",
	}
}

// NewChapterNumberExistsError は同一マンガ内でのチャプター番号重複エラーを生成する。
func NewChapterNumberExistsError(number float64) *APIError {
	return &APIError{
		Code:     ErrCodeChapterNumberExists,
		Message:  fmt.Sprintf("チャプター番号 %g は既に存在します。", number),
		Category: "validation",
		Action:   "別のチャプター番号を指定してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "comment",
		Action:   "コメントIDを確認してください。",
	}
}

// NewCommentNotOwnedError は他人のコメントを削除しようとした場合のエラーを生成する。
func NewCommentNotOwnedError() *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotOwned,
		Message:  "このコメントを削除する権限がありません。",
		Category: "comment",
		Action:   "自分が投稿したコメントのみ削除できます。",
	}
}

// NewBookmarkNotFoundError はブックマーク未検出エラーを生成する。
func NewBookmarkNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkNotFound,
		Message:  "ブックマークが見つかりません。",
		Category: "library",
		Action:   "ライブラリの内容を確認してください。",
	}
}

// NewBookmarkAlreadyExistsError は既にブックマーク済みのマンガを再登録しようとした場合のエラーを生成する。
func NewBookmarkAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkExists,
		Message:  "このマンガは既にライブラリに追加されています。",
		Category: "library",
		Action:   "ライブラリの内容を確認してください。",
	}
}

// NewHistoryNotFoundError は閲覧履歴未検出エラーを生成する。
func NewHistoryNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeHistoryNotFound,
		Message:  "閲覧履歴が見つかりません。",
		Category: "library",
		Action:   "マンガIDを確認してください。",
	}
}

// NewRatingNotFoundError は評価未検出エラーを生成する。
func NewRatingNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRatingNotFound,
		Message:  "評価が見つかりません。",
		Category: "library",
		Action:   "マンガIDを確認してください。",
	}
}

// NewViewNotTrackedError は外部カタログ由来のマンガに閲覧記録しようとした場合のエラーを生成する。
func NewViewNotTrackedError() *APIError {
	return &APIError{
		Code:     ErrCodeViewNotTracked,
		Message:  "閲覧数は内部マンガに対してのみ記録できます。",
		Category: "validation",
		Action:   "チャプターIDを確認してください。",
	}
}

// NewInvalidCoverURLError はカバー画像URLが不正な場合のエラーを生成する。
func NewInvalidCoverURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCoverURL,
		Message:  fmt.Sprintf("カバー画像のURLが不正です: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps URLまたはファイル名を指定してください。",
	}
}

// NewCatalogUnavailableError は外部カタログAPIの呼び出し失敗エラーを生成する。
func NewCatalogUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogUnavailable,
		Message:  "外部カタログへの問い合わせに失敗しました。",
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}
